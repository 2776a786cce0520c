package memory

import (
	"context"
	"sync"

	"github.com/mpetrovic/storefront/internal/cart/domain"
	"github.com/mpetrovic/storefront/internal/cart/ports"
)

// Cache is an in-process cart cache used when Redis is disabled.
type Cache struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

func NewCache() *Cache {
	return &Cache{carts: make(map[string]domain.Cart)}
}

func (c *Cache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cart, ok := c.carts[userID]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	copy := cart
	return &copy, nil
}

func (c *Cache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.carts[userID] = *cart
	return nil
}

func (c *Cache) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.carts, userID)
	return nil
}
