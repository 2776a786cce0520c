package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mpetrovic/storefront/internal/catalog"
)

type Reader struct {
	pool *pgxpool.Pool
}

func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

func (r *Reader) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	query := `
		SELECT id, name, price_cents, stock
		FROM products
		WHERE id = $1
	`

	var product catalog.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.PriceCents,
		&product.Stock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}

	return &product, nil
}

func (r *Reader) GetByIDs(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	query := `
		SELECT id, name, price_cents, stock
		FROM products
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make(map[string]catalog.Product, len(ids))
	for rows.Next() {
		var product catalog.Product
		if err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.PriceCents,
			&product.Stock,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[product.ID] = product
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}
