package cart

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Item is one cart line, keyed by (product, size, color).
type Item struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Size           string    `json:"size"`
	Color          string    `json:"color"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	ImageURL       *string   `json:"image_url,omitempty"`
}

// Key identifies a cart line.
type Key struct {
	ProductID uuid.UUID
	Size      string
	Color     string
}

// VariantKey returns the line's identity.
func (i Item) VariantKey() Key {
	return Key{ProductID: i.ProductID, Size: i.Size, Color: i.Color}
}

// Cart is the per-user cart document. Totals are derived fields and must be
// recomputed from the item set after every change.
type Cart struct {
	UserID          uuid.UUID `json:"user_id"`
	Items           []Item    `json:"items"`
	TotalItems      int       `json:"total_items"`
	TotalPriceCents int       `json:"total_price_cents"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewCart returns an empty cart for the user.
func NewCart(userID uuid.UUID) *Cart {
	return &Cart{UserID: userID, Items: []Item{}}
}

// Recompute rebuilds TotalItems and TotalPriceCents from the item set.
func (c *Cart) Recompute() {
	totalItems := 0
	totalPrice := 0
	for _, item := range c.Items {
		totalItems += item.Quantity
		totalPrice += item.Quantity * item.UnitPriceCents
	}
	c.TotalItems = totalItems
	c.TotalPriceCents = totalPrice
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Find returns a pointer to the line matching key, or nil.
func (c *Cart) Find(key Key) *Item {
	for idx := range c.Items {
		if c.Items[idx].VariantKey() == key {
			return &c.Items[idx]
		}
	}
	return nil
}

// Remove drops the line matching key. Reports whether a line was removed.
func (c *Cart) Remove(key Key) bool {
	for idx := range c.Items {
		if c.Items[idx].VariantKey() == key {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = make([]Item, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}

// SortItems orders the lines deterministically for comparison and transport.
func (c *Cart) SortItems() {
	sort.Slice(c.Items, func(i, j int) bool {
		a, b := c.Items[i], c.Items[j]
		if a.ProductID != b.ProductID {
			return a.ProductID.String() < b.ProductID.String()
		}
		if a.Size != b.Size {
			return a.Size < b.Size
		}
		return a.Color < b.Color
	})
}

// ContentEqual reports whether two carts hold the same lines with the same
// quantities, ignoring timestamps and derived totals.
func ContentEqual(a, b *Cart) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}
	index := make(map[Key]Item, len(a.Items))
	for _, item := range a.Items {
		index[item.VariantKey()] = item
	}
	for _, item := range b.Items {
		other, ok := index[item.VariantKey()]
		if !ok || other.Quantity != item.Quantity {
			return false
		}
	}
	return true
}
