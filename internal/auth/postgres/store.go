package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mpetrovic/storefront/internal/auth"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Resolve(ctx context.Context, token string) (string, error) {
	query := `
		SELECT user_id, expires_at
		FROM user_sessions
		WHERE token = $1
	`

	var userID string
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx, query, token).Scan(&userID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrTokenInvalid
		}
		return "", fmt.Errorf("select user session: %w", err)
	}

	if time.Now().UTC().After(expiresAt) {
		return "", auth.ErrTokenInvalid
	}

	return userID, nil
}
