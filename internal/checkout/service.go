package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dmarceau/storefront-backend/internal/cart"
	"github.com/dmarceau/storefront-backend/internal/catalog"
	"github.com/dmarceau/storefront-backend/pkg/db"
	"github.com/dmarceau/storefront-backend/pkg/db/models"
	"github.com/dmarceau/storefront-backend/pkg/enums"
	"github.com/dmarceau/storefront-backend/pkg/logger"
	"github.com/dmarceau/storefront-backend/pkg/metrics"
	"github.com/dmarceau/storefront-backend/pkg/types"
)

// CommitInput is the validated checkout payload.
type CommitInput struct {
	UserID          uuid.UUID
	DeviceID        string
	ShippingAddress types.Address
	BillingAddress  types.Address
	PaymentRef      string
}

// Syncer pushes local cart state to the remote shadow ahead of a commit.
type Syncer interface {
	SyncPass(ctx context.Context, userID uuid.UUID, deviceID string) (string, error)
}

// Service commits carts into orders.
type Service interface {
	Commit(ctx context.Context, input CommitInput) (*models.Order, error)
}

// ServiceParams configure the checkout service.
type ServiceParams struct {
	DB          *db.Client
	Repo        *Repository
	CartRepo    *cart.Repository
	CatalogRepo *catalog.Repository
	Cache       cart.Cache
	Syncer      Syncer
	Logger      *logger.Logger
	Metrics     *metrics.CheckoutMetrics
	Policy      TotalsPolicy
}

type service struct {
	db          *db.Client
	repo        *Repository
	cartRepo    *cart.Repository
	catalogRepo *catalog.Repository
	cache       cart.Cache
	syncer      Syncer
	logg        *logger.Logger
	metrics     *metrics.CheckoutMetrics
	policy      TotalsPolicy
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.CatalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("cart cache required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:          params.DB,
		repo:        params.Repo,
		cartRepo:    params.CartRepo,
		catalogRepo: params.CatalogRepo,
		cache:       params.Cache,
		syncer:      params.Syncer,
		logg:        params.Logger,
		metrics:     params.Metrics,
		policy:      params.Policy,
	}, nil
}

// Commit turns the user's cart into an order inside a single transaction:
// stock is reserved line by line with a guarded decrement and any shortfall
// aborts the whole order. The cart is cleared only after the transaction
// commits; a failed clear can no longer undo the order.
func (s *service) Commit(ctx context.Context, input CommitInput) (*models.Order, error) {
	start := time.Now()
	order, err := s.commit(ctx, input)
	outcome := "committed"
	if err != nil {
		outcome = "rejected"
		if commitErr, ok := err.(*CommitError); ok {
			outcome = string(commitErr.Reason)
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveCommit(outcome, time.Since(start))
	}
	return order, err
}

func (s *service) commit(ctx context.Context, input CommitInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, newCommitError(ReasonUnknown, uuid.Nil, "user id required")
	}
	if input.PaymentRef == "" {
		return nil, newCommitError(ReasonUnknown, uuid.Nil, "payment reference required")
	}

	ctx = s.logg.WithUserID(ctx, input.UserID.String())

	// Best effort: push whatever the device cached before the transactional
	// read, so a commit right after an offline edit sees the full cart.
	if s.syncer != nil {
		if _, err := s.syncer.SyncPass(ctx, input.UserID, input.DeviceID); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("pre-commit sync failed: %v", err))
		}
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)

		record, err := cartRepo.GetRecord(ctx, input.UserID)
		if err != nil {
			if cart.IsRecordNotFound(err) {
				return newCommitError(ReasonEmptyCart, uuid.Nil, "cart is empty")
			}
			return fmt.Errorf("load cart: %w", err)
		}
		if len(record.Items) == 0 {
			return newCommitError(ReasonEmptyCart, uuid.Nil, "cart is empty")
		}

		subtotal := 0
		lineItems := make([]models.OrderLineItem, 0, len(record.Items))
		for _, item := range record.Items {
			product, err := catalogRepo.FindProduct(ctx, item.ProductID)
			if err != nil {
				if catalog.IsNotFound(err) {
					return newCommitError(ReasonProductUnavailable, item.ProductID, "product no longer exists")
				}
				return fmt.Errorf("load product %s: %w", item.ProductID, err)
			}
			if !product.IsActive {
				return newCommitError(ReasonProductUnavailable, product.ID, "product is inactive")
			}

			if _, err := catalogRepo.FindInventoryLine(ctx, item.ProductID, item.Size, item.Color); err != nil {
				if catalog.IsNotFound(err) {
					return newCommitError(ReasonProductUnavailable, product.ID, "variant no longer stocked")
				}
				return fmt.Errorf("load inventory for %s: %w", item.ProductID, err)
			}

			reserved, err := catalogRepo.ReserveStock(ctx, item.ProductID, item.Size, item.Color, item.Quantity)
			if err != nil {
				return fmt.Errorf("reserve stock for %s: %w", item.ProductID, err)
			}
			if !reserved {
				return newCommitError(ReasonInsufficientInventory, product.ID,
					fmt.Sprintf("insufficient stock for %q (%s/%s)", product.Name, item.Size, item.Color))
			}

			subtotal += item.Quantity * item.UnitPriceCents
			lineItems = append(lineItems, models.OrderLineItem{
				ProductID:      item.ProductID,
				Name:           product.Name,
				Size:           item.Size,
				Color:          item.Color,
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
				ImageURL:       product.ImageURL,
			})
		}

		totals := computeTotals(subtotal, 0, s.policy)
		order = &models.Order{
			UserID:          input.UserID,
			Status:          enums.OrderStatusPending,
			SubtotalCents:   totals.SubtotalCents,
			TaxCents:        totals.TaxCents,
			ShippingCents:   totals.ShippingCents,
			DiscountCents:   totals.DiscountCents,
			TotalCents:      totals.TotalCents,
			ShippingAddress: input.ShippingAddress,
			BillingAddress:  input.BillingAddress,
			PaymentRef:      input.PaymentRef,
			Items:           lineItems,
		}
		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		if commitErr, ok := err.(*CommitError); ok {
			return nil, commitErr
		}
		s.logg.Error(ctx, "order commit failed", err)
		return nil, newCommitError(ReasonUnknown, uuid.Nil, "order commit failed")
	}

	s.clearCart(ctx, input)
	return order, nil
}

// clearCart empties both cart sides after a successful commit. Failures are
// logged and swallowed; the sync engine converges the leftovers later.
func (s *service) clearCart(ctx context.Context, input CommitInput) {
	now := time.Now().UTC()
	cleared := cart.NewCart(input.UserID)
	cleared.UpdatedAt = now

	var cleanupErr error
	if err := s.cache.Put(ctx, cleared); err != nil {
		cleanupErr = multierr.Append(cleanupErr, fmt.Errorf("clear cache: %w", err))
	}
	if err := s.cartRepo.Clear(ctx, input.UserID, input.DeviceID, now); err != nil {
		cleanupErr = multierr.Append(cleanupErr, fmt.Errorf("clear remote cart: %w", err))
	}
	if cleanupErr != nil {
		s.logg.Error(ctx, "post-commit cart clear incomplete", cleanupErr)
	}
}
