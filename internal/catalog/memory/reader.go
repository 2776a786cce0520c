package memory

import (
	"context"
	"sync"

	"github.com/mpetrovic/storefront/internal/catalog"
)

// Reader is an in-memory catalog useful for local development and tests.
type Reader struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

func NewReader(products ...catalog.Product) *Reader {
	r := &Reader{products: make(map[string]catalog.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// Put inserts or replaces a product, e.g. to simulate a price change.
func (r *Reader) Put(product catalog.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
}

// Delete removes a product, e.g. to simulate a stale catalog reference.
func (r *Reader) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
}

func (r *Reader) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	copy := product
	return &copy, nil
}

func (r *Reader) GetByIDs(_ context.Context, ids []string) (map[string]catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]catalog.Product, len(ids))
	for _, id := range ids {
		if product, ok := r.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}
