package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartSyncItem is one line of a remote cart shadow, unique per
// (user, product, size, color).
type CartSyncItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_sync_items_variant,priority:1"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_sync_items_variant,priority:2"`
	Size           string    `gorm:"column:size;not null;uniqueIndex:idx_cart_sync_items_variant,priority:3"`
	Color          string    `gorm:"column:color;not null;uniqueIndex:idx_cart_sync_items_variant,priority:4"`
	Name           string    `gorm:"column:name;not null;default:''"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	ImageURL       string    `gorm:"column:image_url;not null;default:''"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartSyncItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
