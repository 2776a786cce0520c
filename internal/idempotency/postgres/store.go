package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mpetrovic/storefront/internal/orders/ports"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get returns the stored response for a key, or nil when the key is unknown
// or only claimed so far. A claimed row has status code zero until Save
// fills it in.
func (s *Store) Get(ctx context.Context, key string) (*ports.StoredResponse, error) {
	query := `
		SELECT status_code, body, order_id
		FROM idempotency_keys
		WHERE key = $1 AND status_code <> 0
	`

	var resp ports.StoredResponse
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&resp.StatusCode,
		&resp.Body,
		&resp.OrderID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select idempotency key: %w", err)
	}

	return &resp, nil
}

// Claim inserts a placeholder row for the key. A concurrent duplicate insert
// is a no-op, so exactly one caller gets true and proceeds with the work.
func (s *Store) Claim(ctx context.Context, key string) (bool, error) {
	query := `
		INSERT INTO idempotency_keys (key, status_code, body, order_id)
		VALUES ($1, 0, ''::bytea, '')
		ON CONFLICT (key) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query, key)
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Save fills in the response on the row Claim reserved.
func (s *Store) Save(ctx context.Context, key string, response ports.StoredResponse) error {
	query := `
		UPDATE idempotency_keys
		SET status_code = $2, body = $3, order_id = $4
		WHERE key = $1 AND status_code = 0
	`

	_, err := s.pool.Exec(ctx, query, key, response.StatusCode, response.Body, response.OrderID)
	if err != nil {
		return fmt.Errorf("store idempotency response: %w", err)
	}

	return nil
}

// Release gives a claimed key back so the client can retry. Filled-in rows
// are left alone.
func (s *Store) Release(ctx context.Context, key string) error {
	query := `
		DELETE FROM idempotency_keys
		WHERE key = $1 AND status_code = 0
	`

	if _, err := s.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}

	return nil
}
