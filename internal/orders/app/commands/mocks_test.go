package commands_test

import (
	"context"

	cartdomain "github.com/mpetrovic/storefront/internal/cart/domain"
	"github.com/mpetrovic/storefront/internal/catalog"
	"github.com/mpetrovic/storefront/internal/orders/domain"
	"github.com/mpetrovic/storefront/internal/orders/ports"
)

type mockOrderRepository struct {
	createFn       func(ctx context.Context, order domain.Order) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Order, error)
	updateStatusFn func(ctx context.Context, id string, from, to domain.OrderStatus) error
}

func (m *mockOrderRepository) Create(ctx context.Context, order domain.Order) error {
	if m.createFn != nil {
		return m.createFn(ctx, order)
	}
	return nil
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, ports.ErrNotFound
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID string, filter ports.ListFilter) ([]domain.Order, error) {
	return nil, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, from, to)
	}
	return nil
}

type mockCartRepository struct {
	getFn   func(ctx context.Context, userID string) (*cartdomain.Cart, error)
	clearFn func(ctx context.Context, userID string) error
}

func (m *mockCartRepository) Get(ctx context.Context, userID string) (*cartdomain.Cart, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockCartRepository) AddItem(ctx context.Context, userID, productID string, qty int) (*cartdomain.Cart, error) {
	return nil, nil
}

func (m *mockCartRepository) UpdateQuantity(ctx context.Context, userID, productID string, delta int) (*cartdomain.Cart, error) {
	return nil, nil
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, userID, productID string) (*cartdomain.Cart, error) {
	return nil, nil
}

func (m *mockCartRepository) Clear(ctx context.Context, userID string) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return nil
}

type mockCatalog struct {
	getByIDsFn func(ctx context.Context, ids []string) (map[string]catalog.Product, error)
}

func (m *mockCatalog) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	return nil, catalog.ErrProductNotFound
}

func (m *mockCatalog) GetByIDs(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return map[string]catalog.Product{}, nil
}

type mockLedger struct {
	decrementFn func(ctx context.Context, productID string, qty int) error
	restoreFn   func(ctx context.Context, productID string, qty int) error
}

func (m *mockLedger) Decrement(ctx context.Context, productID string, qty int) error {
	if m.decrementFn != nil {
		return m.decrementFn(ctx, productID, qty)
	}
	return nil
}

func (m *mockLedger) Restore(ctx context.Context, productID string, qty int) error {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, productID, qty)
	}
	return nil
}

type mockEventBus struct {
	publishOrderCreatedFn   func(ctx context.Context, orderID string) error
	publishOrderCancelledFn func(ctx context.Context, orderID string) error
}

func (m *mockEventBus) PublishOrderCreated(ctx context.Context, orderID string) error {
	if m.publishOrderCreatedFn != nil {
		return m.publishOrderCreatedFn(ctx, orderID)
	}
	return nil
}

func (m *mockEventBus) PublishOrderPaid(ctx context.Context, orderID, paymentID string) error {
	return nil
}

func (m *mockEventBus) PublishOrderCancelled(ctx context.Context, orderID string) error {
	if m.publishOrderCancelledFn != nil {
		return m.publishOrderCancelledFn(ctx, orderID)
	}
	return nil
}

func (m *mockEventBus) PublishOrderFailed(ctx context.Context, orderID string, reason string) error {
	return nil
}
