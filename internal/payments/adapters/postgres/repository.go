package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mpetrovic/storefront/internal/payments/domain"
	"github.com/mpetrovic/storefront/internal/payments/ports"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, order_id, gateway_order_id, payment_id, amount_cents, currency, status, created_at, expires_at, updated_at`

func (r *Repository) Create(ctx context.Context, session domain.Session) error {
	query := `
		INSERT INTO payment_sessions (id, order_id, gateway_order_id, payment_id, amount_cents, currency, status, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.OrderID,
		session.GatewayOrderID,
		session.PaymentID,
		session.AmountCents,
		session.Currency,
		session.Status,
		session.CreatedAt,
		session.ExpiresAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment session: %w", err)
	}

	return nil
}

func (r *Repository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM payment_sessions
		WHERE gateway_order_id = $1
	`

	session, err := r.scanOne(r.pool.QueryRow(ctx, query, gatewayOrderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("select payment session: %w", err)
	}

	return session, nil
}

func (r *Repository) GetActiveByOrderID(ctx context.Context, orderID string) (*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM payment_sessions
		WHERE order_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	session, err := r.scanOne(r.pool.QueryRow(ctx, query, orderID, domain.SessionCreated))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("select active payment session: %w", err)
	}

	return session, nil
}

// UpdateStatus is compare-and-set on the session status. The payment id is
// only overwritten when a non-empty one is supplied.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.SessionStatus, paymentID string) error {
	query := `
		UPDATE payment_sessions
		SET status = $1,
		    payment_id = CASE WHEN $2 <> '' THEN $2 ELSE payment_id END,
		    updated_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.pool.Exec(ctx, query, to, paymentID, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update payment session status: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payment_sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check payment session: %w", err)
		}
		if !exists {
			return domain.ErrSessionNotFound
		}
		return ports.ErrStatusConflict
	}

	return nil
}

func (r *Repository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM payment_sessions
		WHERE status = $1 AND expires_at < $2
		ORDER BY expires_at
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, domain.SessionCreated, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired sessions: %w", err)
	}

	return sessions, nil
}

func (r *Repository) scanOne(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	err := row.Scan(
		&session.ID,
		&session.OrderID,
		&session.GatewayOrderID,
		&session.PaymentID,
		&session.AmountCents,
		&session.Currency,
		&session.Status,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
