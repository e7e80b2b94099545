package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CartSyncRecord is the remote shadow of a user's cart used for cross-device
// reconciliation. One record per user; created on first upload and emptied
// (not deleted) by cart clears.
type CartSyncRecord struct {
	UserID          uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey"`
	TotalItems      int            `gorm:"column:total_items;not null;default:0"`
	TotalPriceCents int            `gorm:"column:total_price_cents;not null;default:0"`
	LastModified    time.Time      `gorm:"column:last_modified;not null"`
	DeviceID        string         `gorm:"column:device_id;not null"`
	SyncVersion     int64          `gorm:"column:sync_version;not null;default:0"`
	SeenDeviceIDs   pq.StringArray `gorm:"column:seen_device_ids;type:text[]"`
	Items           []CartSyncItem `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
