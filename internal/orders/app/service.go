package app

import (
	"context"
	"log/slog"

	cartports "github.com/mpetrovic/storefront/internal/cart/ports"
	"github.com/mpetrovic/storefront/internal/catalog"
	"github.com/mpetrovic/storefront/internal/inventory"
	"github.com/mpetrovic/storefront/internal/orders/app/commands"
	"github.com/mpetrovic/storefront/internal/orders/app/queries"
	"github.com/mpetrovic/storefront/internal/orders/domain"
	"github.com/mpetrovic/storefront/internal/orders/metrics"
	"github.com/mpetrovic/storefront/internal/orders/ports"
)

// Service bundles the order use cases exposed over the API.
type Service struct {
	repo            ports.OrderRepository
	idemStore       ports.IdempotencyStore
	checkoutHandler commands.CommandHandler
	cancelHandler   *commands.CancelOrderCommandHandler
	getOrderHandler *queries.GetOrderQueryHandler
}

// NewService wires required dependencies.
func NewService(
	repo ports.OrderRepository,
	carts cartports.CartRepository,
	reader catalog.ProductReader,
	stock inventory.StockLedger,
	events ports.EventBus,
	idem ports.IdempotencyStore,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	checkout := commands.NewCheckoutCommandHandler(repo, carts, reader, stock, events)
	observable := commands.NewObservableCheckoutHandler(checkout, logger, metrics)

	return &Service{
		repo:            repo,
		idemStore:       idem,
		checkoutHandler: observable,
		cancelHandler:   commands.NewCancelOrderCommandHandler(repo, stock, events),
		getOrderHandler: queries.NewGetOrderQueryHandler(repo),
	}
}

// Checkout snapshots the user's cart into a new pending order.
func (s *Service) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	return s.checkoutHandler.Handle(ctx, commands.CheckoutCommand{UserID: userID})
}

// GetOrder retrieves one of the user's orders by ID.
func (s *Service) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{UserID: userID, OrderID: orderID})
}

// ListOrders returns the user's orders using a filter.
func (s *Service) ListOrders(ctx context.Context, userID string, filter ports.ListFilter) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID, filter)
}

// CancelOrder attempts to cancel a pending order owned by the user.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	return s.cancelHandler.Handle(ctx, commands.CancelOrderCommand{UserID: userID, OrderID: orderID})
}

// ClaimIdempotencyKey reserves a checkout token before any side effects run.
func (s *Service) ClaimIdempotencyKey(ctx context.Context, key string) (bool, error) {
	return s.idemStore.Claim(ctx, key)
}

// SaveIdempotentResponse writes response details for a claimed checkout token.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// ReleaseIdempotencyKey gives a claimed token back after a failed checkout.
func (s *Service) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return s.idemStore.Release(ctx, key)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
