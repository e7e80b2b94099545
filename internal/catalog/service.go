package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/dmarceau/storefront-backend/pkg/errors"
)

// Variant is the read-side view a cart line needs: current price, activation
// state, and remaining stock for one (product, size, color).
type Variant struct {
	ProductID    uuid.UUID
	Name         string
	Size         string
	Color        string
	PriceCents   int
	ImageURL     *string
	IsActive     bool
	AvailableQty int
}

// Service exposes catalog reads for cart mutations and checkout validation.
type Service interface {
	GetVariant(ctx context.Context, productID uuid.UUID, size, color string) (*Variant, error)
}

type service struct {
	repo *Repository
}

// NewService builds the catalog read service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetVariant(ctx context.Context, productID uuid.UUID, size, color string) (*Variant, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	line, err := s.repo.FindInventoryLine(ctx, productID, size, color)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory line")
	}

	return &Variant{
		ProductID:    product.ID,
		Name:         product.Name,
		Size:         line.Size,
		Color:        line.Color,
		PriceCents:   product.PriceCents,
		ImageURL:     product.ImageURL,
		IsActive:     product.IsActive,
		AvailableQty: line.AvailableQty,
	}, nil
}
