package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryLine tracks the sellable count for one (product, size, color)
// variant. AvailableQty must never go negative; the checkout transaction is
// the only writer that decrements it.
type InventoryLine struct {
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Size         string    `gorm:"column:size;primaryKey"`
	Color        string    `gorm:"column:color;primaryKey"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
