package ports

import (
	"context"
	"errors"

	"github.com/mpetrovic/storefront/internal/cart/domain"
)

// CartRepository is the authoritative cart store. Every mutation returns the
// server-confirmed cart so callers reconcile against it instead of trusting
// an optimistic local copy.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID string, delta int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

var (
	// ErrCartNotFound is returned when the user has no cart yet. Callers
	// treat it as an empty cart; carts are created lazily.
	ErrCartNotFound = errors.New("cart not found")

	// ErrItemNotFound is returned by UpdateQuantity for a product not in
	// the cart. RemoveItem is idempotent and never returns it.
	ErrItemNotFound = errors.New("cart item not found")
)
