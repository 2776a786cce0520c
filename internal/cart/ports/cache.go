package ports

import (
	"context"
	"errors"

	"github.com/mpetrovic/storefront/internal/cart/domain"
)

// CartCache is a read-through cache in front of the cart repository.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
