package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarceau/storefront-backend/internal/catalog"
	"github.com/dmarceau/storefront-backend/pkg/db"
	"github.com/dmarceau/storefront-backend/pkg/db/models"
	"github.com/dmarceau/storefront-backend/pkg/enums"
	pkgerrors "github.com/dmarceau/storefront-backend/pkg/errors"
	"github.com/dmarceau/storefront-backend/pkg/logger"
)

// Service exposes order reads and the lifecycle state machine.
type Service interface {
	GetUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error)
}

// UpdateStatusInput carries the requested transition.
type UpdateStatusInput struct {
	Status         enums.OrderStatus
	TrackingNumber *string
}

// ServiceParams configure the orders service.
type ServiceParams struct {
	DB          *db.Client
	Repo        *Repository
	CatalogRepo *catalog.Repository
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	db          *db.Client
	repo        *Repository
	catalogRepo *catalog.Repository
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if params.CatalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:          params.DB,
		repo:        params.Repo,
		catalogRepo: params.CatalogRepo,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) GetUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return out, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// UpdateStatus advances the order through
// pending -> processing -> shipped -> delivered, with pending and processing
// also allowed to cancel. Cancellation puts every line's quantity back into
// inventory inside the same transaction.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Status))
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var updated *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if !order.Status.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, input.Status))
		}

		now := s.now().UTC()
		switch input.Status {
		case enums.OrderStatusShipped:
			order.ShippedAt = &now
			order.TrackingNumber = input.TrackingNumber
		case enums.OrderStatusDelivered:
			order.DeliveredAt = &now
		case enums.OrderStatusCancelled:
			order.CancelledAt = &now
			if err := s.restoreInventory(ctx, tx, order); err != nil {
				return err
			}
		}
		order.Status = input.Status

		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, fmt.Sprintf("order moved to %s", updated.Status))
	return updated, nil
}

func (s *service) restoreInventory(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	catalogRepo := s.catalogRepo.WithTx(tx)
	for _, item := range order.Items {
		err := catalogRepo.RestockStock(ctx, item.ProductID, item.Size, item.Color, item.Quantity)
		if err != nil {
			// A line whose variant was deleted after purchase has nowhere to
			// return stock to; the cancellation still goes through.
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				s.logg.Warn(ctx, fmt.Sprintf("no inventory line to restock for product %s", item.ProductID))
				continue
			}
			return err
		}
	}
	return nil
}
