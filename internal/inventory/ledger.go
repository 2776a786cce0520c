package inventory

import (
	"context"
	"errors"
)

// StockLedger is the external stock system of record. The storefront core
// issues decrement/restore requests against it but does not own it.
//
// Policy: stock is decremented when an order is created and restored when a
// pending order is cancelled. Payment success never touches stock again.
type StockLedger interface {
	Decrement(ctx context.Context, productID string, qty int) error
	Restore(ctx context.Context, productID string, qty int) error
}

var ErrInsufficientStock = errors.New("insufficient stock")
