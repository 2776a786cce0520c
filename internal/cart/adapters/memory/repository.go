package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mpetrovic/storefront/internal/cart/domain"
	"github.com/mpetrovic/storefront/internal/cart/ports"
)

// Repository keeps carts in memory for local development and tests.
type Repository struct {
	mu    sync.RWMutex
	carts map[string]map[string]int
}

func NewRepository() *Repository {
	return &Repository{carts: make(map[string]map[string]int)}
}

func (r *Repository) Get(_ context.Context, userID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items, ok := r.carts[userID]
	if !ok || len(items) == 0 {
		return nil, ports.ErrCartNotFound
	}
	return r.snapshot(userID, items), nil
}

func (r *Repository) AddItem(_ context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.carts[userID]
	if items == nil {
		items = make(map[string]int)
		r.carts[userID] = items
	}
	items[productID] += qty

	return r.snapshot(userID, items), nil
}

func (r *Repository) UpdateQuantity(_ context.Context, userID, productID string, delta int) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.carts[userID]
	current, ok := items[productID]
	if !ok {
		return nil, ports.ErrItemNotFound
	}
	if current+delta < 1 {
		return nil, domain.ErrQuantityTooLow
	}
	items[productID] = current + delta

	return r.snapshot(userID, items), nil
}

func (r *Repository) RemoveItem(_ context.Context, userID, productID string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.carts[userID]
	delete(items, productID)

	return r.snapshot(userID, items), nil
}

func (r *Repository) Clear(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}

func (r *Repository) snapshot(userID string, items map[string]int) *domain.Cart {
	cart := &domain.Cart{UserID: userID, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	for productID, qty := range items {
		cart.Items = append(cart.Items, domain.Item{ProductID: productID, Quantity: qty})
	}
	sort.Slice(cart.Items, func(i, j int) bool {
		return cart.Items[i].ProductID < cart.Items[j].ProductID
	})
	return cart
}
