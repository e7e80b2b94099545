package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarceau/storefront-backend/pkg/enums"
	"github.com/dmarceau/storefront-backend/pkg/types"
)

// Order is the immutable result of a committed checkout. Only Status,
// TrackingNumber, and the lifecycle timestamps change after creation; the
// line-item snapshot and totals never do.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	SubtotalCents   int               `gorm:"column:subtotal_cents;not null"`
	TaxCents        int               `gorm:"column:tax_cents;not null"`
	ShippingCents   int               `gorm:"column:shipping_cents;not null"`
	DiscountCents   int               `gorm:"column:discount_cents;not null;default:0"`
	TotalCents      int               `gorm:"column:total_cents;not null"`
	ShippingAddress types.Address     `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress  types.Address     `gorm:"column:billing_address;type:jsonb;serializer:json"`
	PaymentRef      string            `gorm:"column:payment_ref;not null"`
	TrackingNumber  *string           `gorm:"column:tracking_number"`
	ShippedAt       *time.Time        `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time        `gorm:"column:delivered_at"`
	CancelledAt     *time.Time        `gorm:"column:cancelled_at"`
	Items           []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
