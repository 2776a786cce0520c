package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpetrovic/storefront/internal/cart/domain"
	"github.com/mpetrovic/storefront/internal/cart/ports"
	"github.com/mpetrovic/storefront/internal/catalog"
	"golang.org/x/sync/singleflight"
)

// Service implements the cart use cases. Mutations go to the repository
// first; the returned server-confirmed cart is the only state callers see,
// and the cache entry is dropped so the next read re-fetches it.
type Service struct {
	repo    ports.CartRepository
	cache   ports.CartCache
	catalog catalog.ProductReader
	logger  *slog.Logger
	sfg     singleflight.Group
}

func NewService(repo ports.CartRepository, cache ports.CartCache, reader catalog.ProductReader, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		catalog: reader,
		logger:  logger,
	}
}

// View is a priced snapshot of the cart. Prices come from the catalog as of
// now; they are not frozen until checkout.
type View struct {
	Items         []ViewItem `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
}

type ViewItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// Get returns the user's cart, creating the empty representation lazily.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	// singleflight collapses concurrent misses for the same user.
	v, err, _ := s.sfg.Do(userID, func() (any, error) {
		cached, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ports.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cart cache read failed", "error", err, "user_id", userID)
		}

		cart, err := s.repo.Get(ctx, userID)
		if errors.Is(err, ports.ErrCartNotFound) {
			now := time.Now().UTC()
			return &domain.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
		}
		if err != nil {
			return nil, err
		}

		if err := s.cache.Set(ctx, userID, cart); err != nil {
			s.logger.WarnContext(ctx, "cart cache write failed", "error", err, "user_id", userID)
		}

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// View prices the cart against the current catalog and computes the subtotal.
func (s *Service) View(ctx context.Context, userID string) (*View, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("price cart: %w", err)
	}

	view := &View{Items: make([]ViewItem, 0, len(cart.Items))}
	for _, item := range cart.Items {
		vi := ViewItem{ProductID: item.ProductID, Quantity: item.Quantity}
		if product, ok := products[item.ProductID]; ok {
			vi.Name = product.Name
			vi.UnitPriceCents = product.PriceCents
			vi.LineTotalCents = product.PriceCents * int64(item.Quantity)
		}
		view.SubtotalCents += vi.LineTotalCents
		view.Items = append(view.Items, vi)
	}

	return view, nil
}

// AddItem validates the product against the catalog, then persists. The
// repository response is the reconciled truth; on any failure the cached
// copy is dropped rather than patched.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	if qty < 1 {
		return nil, domain.ErrQuantityTooLow
	}

	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < qty {
		return nil, fmt.Errorf("product %s: requested %d, %w", productID, qty, ErrStockExhausted)
	}

	cart, err := s.repo.AddItem(ctx, userID, productID, qty)
	s.invalidate(ctx, userID)
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// UpdateQuantity applies a signed delta. A delta that would leave the line
// below 1 is rejected and nothing changes.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, delta int) (*domain.Cart, error) {
	if delta == 0 {
		return s.Get(ctx, userID)
	}

	cart, err := s.repo.UpdateQuantity(ctx, userID, productID, delta)
	s.invalidate(ctx, userID)
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// RemoveItem drops a line. Removing an absent item is not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	cart, err := s.repo.RemoveItem(ctx, userID, productID)
	s.invalidate(ctx, userID)
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// Clear empties the cart. The rows go away but the cart itself survives;
// checkout calls this only after the order is durably created.
func (s *Service) Clear(ctx context.Context, userID string) error {
	err := s.repo.Clear(ctx, userID)
	s.invalidate(ctx, userID)
	return err
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "cart cache invalidation failed", "error", err, "user_id", userID)
	}
}

// ErrStockExhausted rejects an add for more units than the catalog has.
var ErrStockExhausted = errors.New("not enough stock")
