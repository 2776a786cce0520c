package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mpetrovic/storefront/internal/cart/domain"
	"github.com/mpetrovic/storefront/internal/cart/ports"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `
		SELECT product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	cart := &domain.Cart{UserID: userID}
	for rows.Next() {
		var item domain.Item
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&item.ProductID, &item.Quantity, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if cart.CreatedAt.IsZero() || createdAt.Before(cart.CreatedAt) {
			cart.CreatedAt = createdAt
		}
		if updatedAt.After(cart.UpdatedAt) {
			cart.UpdatedAt = updatedAt
		}
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	if len(cart.Items) == 0 {
		return nil, ports.ErrCartNotFound
	}

	return cart, nil
}

func (r *Repository) AddItem(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.pool.Exec(ctx, query, userID, productID, qty, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	return r.getOrEmpty(ctx, userID)
}

func (r *Repository) UpdateQuantity(ctx context.Context, userID, productID string, delta int) (*domain.Cart, error) {
	// The quantity floor is enforced in the statement itself so a racing
	// decrement can never drive the line below 1.
	query := `
		UPDATE cart_items
		SET quantity = quantity + $3, updated_at = $4
		WHERE user_id = $1 AND product_id = $2 AND quantity + $3 >= 1
	`

	result, err := r.pool.Exec(ctx, query, userID, productID, delta, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update cart item quantity: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM cart_items WHERE user_id = $1 AND product_id = $2)`,
			userID, productID,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check cart item: %w", err)
		}
		if !exists {
			return nil, ports.ErrItemNotFound
		}
		return nil, domain.ErrQuantityTooLow
	}

	return r.getOrEmpty(ctx, userID)
}

func (r *Repository) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	query := `
		DELETE FROM cart_items
		WHERE user_id = $1 AND product_id = $2
	`

	if _, err := r.pool.Exec(ctx, query, userID, productID); err != nil {
		return nil, fmt.Errorf("delete cart item: %w", err)
	}

	return r.getOrEmpty(ctx, userID)
}

func (r *Repository) Clear(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *Repository) getOrEmpty(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := r.Get(ctx, userID)
	if errors.Is(err, ports.ErrCartNotFound) {
		now := time.Now().UTC()
		return &domain.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
	}
	return cart, err
}
