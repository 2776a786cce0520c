package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mpetrovic/storefront/internal/inventory"
)

// Ledger mutates the products stock column directly. It stands in for the
// admin-owned inventory service when both share a database.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) Decrement(ctx context.Context, productID string, qty int) error {
	query := `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`

	result, err := l.pool.Exec(ctx, query, productID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	if result.RowsAffected() == 0 {
		return inventory.ErrInsufficientStock
	}

	return nil
}

func (l *Ledger) Restore(ctx context.Context, productID string, qty int) error {
	query := `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1
	`

	if _, err := l.pool.Exec(ctx, query, productID, qty); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	return nil
}
