package domain

import (
	"errors"
	"time"
)

// Cart holds one user's pre-checkout selection. Items are keyed by product:
// adding a product already present increments its quantity, it never appends
// a second line.
type Cart struct {
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

var (
	// ErrQuantityTooLow is returned when a mutation would leave an item
	// below quantity 1. The cart is left unchanged.
	ErrQuantityTooLow = errors.New("quantity must be at least 1")
)

// Item returns the line for a product, if present.
func (c *Cart) Item(productID string) (Item, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return Item{}, false
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
