package catalog

import (
	"context"
	"errors"
)

// Product is the read-side view of a catalog entry. The storefront core
// never writes products; the admin subsystem owns them.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Stock      int    `json:"stock"`
}

// ProductReader exposes the catalog lookups the cart and checkout flows need.
type ProductReader interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]Product, error)
}

var ErrProductNotFound = errors.New("product not found")
