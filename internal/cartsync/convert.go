package cartsync

import (
	"slices"

	"github.com/dmarceau/storefront-backend/internal/cart"
	"github.com/dmarceau/storefront-backend/pkg/db/models"
)

func recordToCart(record *models.CartSyncRecord) *cart.Cart {
	out := &cart.Cart{
		UserID:          record.UserID,
		Items:           make([]cart.Item, 0, len(record.Items)),
		TotalItems:      record.TotalItems,
		TotalPriceCents: record.TotalPriceCents,
		UpdatedAt:       record.LastModified,
	}
	for _, item := range record.Items {
		var imageURL *string
		if item.ImageURL != "" {
			url := item.ImageURL
			imageURL = &url
		}
		out.Items = append(out.Items, cart.Item{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Size:           item.Size,
			Color:          item.Color,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			ImageURL:       imageURL,
		})
	}
	out.SortItems()
	return out
}

func cartToRecord(c *cart.Cart, prev *models.CartSyncRecord, deviceID string) *models.CartSyncRecord {
	record := &models.CartSyncRecord{
		UserID:          c.UserID,
		TotalItems:      c.TotalItems,
		TotalPriceCents: c.TotalPriceCents,
		LastModified:    c.UpdatedAt,
		DeviceID:        deviceID,
		SyncVersion:     1,
		SeenDeviceIDs:   []string{},
	}
	if prev != nil {
		record.SyncVersion = prev.SyncVersion + 1
		record.SeenDeviceIDs = append(record.SeenDeviceIDs, prev.SeenDeviceIDs...)
	}
	if deviceID != "" && !slices.Contains(record.SeenDeviceIDs, deviceID) {
		record.SeenDeviceIDs = append(record.SeenDeviceIDs, deviceID)
	}
	for _, item := range c.Items {
		var imageURL string
		if item.ImageURL != nil {
			imageURL = *item.ImageURL
		}
		record.Items = append(record.Items, models.CartSyncItem{
			UserID:         c.UserID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Size:           item.Size,
			Color:          item.Color,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			ImageURL:       imageURL,
		})
	}
	return record
}

// unionMax combines two carts line by line: every line from either side
// survives, and a line present on both keeps the larger quantity. Name,
// price, and image come from whichever side was touched last.
func unionMax(a, b *cart.Cart) *cart.Cart {
	newer, older := a, b
	if b.UpdatedAt.After(a.UpdatedAt) {
		newer, older = b, a
	}

	merged := newer.Clone()
	for _, item := range older.Items {
		if line := merged.Find(item.VariantKey()); line != nil {
			if item.Quantity > line.Quantity {
				line.Quantity = item.Quantity
			}
			continue
		}
		merged.Items = append(merged.Items, item)
	}
	merged.SortItems()
	return merged
}
