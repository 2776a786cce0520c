package memory

import (
	"context"
	"sync"

	"github.com/mpetrovic/storefront/internal/inventory"
)

// Ledger tracks stock counts in memory for local development and tests.
type Ledger struct {
	mu    sync.Mutex
	stock map[string]int
}

func NewLedger(stock map[string]int) *Ledger {
	s := make(map[string]int, len(stock))
	for id, qty := range stock {
		s[id] = qty
	}
	return &Ledger{stock: s}
}

func (l *Ledger) Decrement(_ context.Context, productID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stock[productID] < qty {
		return inventory.ErrInsufficientStock
	}
	l.stock[productID] -= qty
	return nil
}

func (l *Ledger) Restore(_ context.Context, productID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stock[productID] += qty
	return nil
}

// Stock reports the current count for a product.
func (l *Ledger) Stock(productID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[productID]
}
