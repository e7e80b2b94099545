package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmarceau/storefront-backend/internal/catalog"
	pkgerrors "github.com/dmarceau/storefront-backend/pkg/errors"
	"github.com/dmarceau/storefront-backend/pkg/logger"
)

// Service exposes cart mutations. Every write lands in the local cache only;
// the sync engine moves state to the remote shadow on its own schedule.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*Cart, error)
	SetQuantity(ctx context.Context, userID uuid.UUID, key Key, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, key Key) (*Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) (*Cart, error)
}

// AddItemInput is the validated payload to add a line.
type AddItemInput struct {
	ProductID uuid.UUID
	Size      string
	Color     string
	Quantity  int
}

// ServiceParams configure the cart service.
type ServiceParams struct {
	Cache   Cache
	Catalog catalog.Service
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	cache   Cache
	catalog catalog.Service
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the cart mutation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		cache:   params.Cache,
		catalog: params.Catalog,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.cache.Get(ctx, userID)
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	variant, err := s.catalog.GetVariant(ctx, input.ProductID, input.Size, input.Color)
	if err != nil {
		return nil, err
	}
	if !variant.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is not available")
	}

	cart, err := s.cache.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := Key{ProductID: input.ProductID, Size: input.Size, Color: input.Color}
	if line := cart.Find(key); line != nil {
		line.Quantity += input.Quantity
		line.UnitPriceCents = variant.PriceCents
	} else {
		cart.Items = append(cart.Items, Item{
			ProductID:      variant.ProductID,
			Name:           variant.Name,
			Size:           input.Size,
			Color:          input.Color,
			Quantity:       input.Quantity,
			UnitPriceCents: variant.PriceCents,
			ImageURL:       variant.ImageURL,
		})
	}

	return s.store(ctx, cart)
}

func (s *service) SetQuantity(ctx context.Context, userID uuid.UUID, key Key, quantity int) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	cart, err := s.cache.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		cart.Remove(key)
		return s.store(ctx, cart)
	}

	line := cart.Find(key)
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	line.Quantity = quantity

	return s.store(ctx, cart)
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, key Key) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	cart, err := s.cache.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cart.Remove(key) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	return s.store(ctx, cart)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	cart := NewCart(userID)
	return s.store(ctx, cart)
}

func (s *service) store(ctx context.Context, cart *Cart) (*Cart, error) {
	cart.Recompute()
	cart.UpdatedAt = s.now()
	if err := s.cache.Put(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}
