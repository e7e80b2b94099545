package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarceau/storefront-backend/pkg/db/models"
	pkgerrors "github.com/dmarceau/storefront-backend/pkg/errors"
)

// Repository wires together catalog and inventory persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindProduct loads the product without associations.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindInventoryLine loads the stock row for one variant.
func (r *Repository) FindInventoryLine(ctx context.Context, productID uuid.UUID, size, color string) (*models.InventoryLine, error) {
	var line models.InventoryLine
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND size = ? AND color = ?", productID, size, color).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ReserveStock decrements available_qty for the variant only when enough
// stock remains. Returns false (no error) when the guard fails so the caller
// can abort with the right reason.
func (r *Repository) ReserveStock(ctx context.Context, productID uuid.UUID, size, color string, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_lines
		SET available_qty = available_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND size = ? AND color = ? AND available_qty >= ?
	`, qty, productID, size, color, qty)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	return res.RowsAffected == 1, nil
}

// RestockStock returns quantity to the variant's available pool. Used when a
// committed order is cancelled before shipment.
func (r *Repository) RestockStock(ctx context.Context, productID uuid.UUID, size, color string, qty int) error {
	if qty <= 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_lines
		SET available_qty = available_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND size = ? AND color = ?
	`, qty, productID, size, color)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restock inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory line not found for restock")
	}
	return nil
}

// IsNotFound reports whether err is GORM's missing-record sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
