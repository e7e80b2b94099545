package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmarceau/storefront-backend/pkg/db/models"
)

// IsRecordNotFound reports whether err means the user has no remote cart.
func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Repository persists the remote cart shadow used for cross-device sync.
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

// GetRecord loads the user's remote cart with its items. Returns
// gorm.ErrRecordNotFound when the user has never uploaded a cart.
func (r *Repository) GetRecord(ctx context.Context, userID uuid.UUID) (*models.CartSyncRecord, error) {
	var record models.CartSyncRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveSnapshot upserts the record header and replaces its item set in one
// shot. The caller is responsible for totals and version bookkeeping.
func (r *Repository) SaveSnapshot(ctx context.Context, record *models.CartSyncRecord) error {
	tx := r.db.WithContext(ctx)

	items := record.Items
	record.Items = nil
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_items", "total_price_cents", "last_modified",
			"device_id", "sync_version", "seen_device_ids", "updated_at",
		}),
	}).Create(record).Error
	record.Items = items
	if err != nil {
		return err
	}

	if err := tx.Where("user_id = ?", record.UserID).Delete(&models.CartSyncItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for idx := range items {
		items[idx].UserID = record.UserID
	}
	return tx.Create(&items).Error
}

// Clear empties the record in place: items gone, totals zeroed, timestamp
// refreshed. A user with no record is a no-op.
func (r *Repository) Clear(ctx context.Context, userID uuid.UUID, deviceID string, now time.Time) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("user_id = ?", userID).Delete(&models.CartSyncItem{}).Error; err != nil {
		return err
	}
	return tx.Model(&models.CartSyncRecord{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"total_items":       0,
			"total_price_cents": 0,
			"last_modified":     now,
			"device_id":         deviceID,
			"sync_version":      gorm.Expr("sync_version + 1"),
		}).Error
}
