package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mpetrovic/storefront/internal/orders/app/commands"
	"github.com/mpetrovic/storefront/internal/orders/domain"
	"github.com/mpetrovic/storefront/internal/orders/ports"
)

func pendingOrder(id, userID string) *domain.Order {
	return &domain.Order{
		ID:     id,
		UserID: userID,
		Items: []domain.LineItem{
			{ProductID: "prod-1", UnitPriceCents: 1000, Quantity: 2},
		},
		TotalCents: 2000,
		Status:     domain.StatusPending,
	}
}

func TestCancelOrder(t *testing.T) {
	t.Run("cancels pending order and restores stock", func(t *testing.T) {
		repo := &mockOrderRepository{
			getByIDFn: func(_ context.Context, id string) (*domain.Order, error) {
				return pendingOrder(id, "user-1"), nil
			},
		}
		restored := map[string]int{}
		ledger := &mockLedger{
			restoreFn: func(_ context.Context, productID string, qty int) error {
				restored[productID] += qty
				return nil
			},
		}
		handler := commands.NewCancelOrderCommandHandler(repo, ledger, &mockEventBus{})

		order, err := handler.Handle(context.Background(), commands.CancelOrderCommand{UserID: "user-1", OrderID: "order-1"})

		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if order.Status != domain.StatusCancelled {
			t.Errorf("expected status %s, got %s", domain.StatusCancelled, order.Status)
		}
		if restored["prod-1"] != 2 {
			t.Errorf("expected stock restored by 2, got %d", restored["prod-1"])
		}
	})

	t.Run("hides another user's order as not found", func(t *testing.T) {
		repo := &mockOrderRepository{
			getByIDFn: func(_ context.Context, id string) (*domain.Order, error) {
				return pendingOrder(id, "someone-else"), nil
			},
		}
		handler := commands.NewCancelOrderCommandHandler(repo, &mockLedger{}, &mockEventBus{})

		_, err := handler.Handle(context.Background(), commands.CancelOrderCommand{UserID: "user-1", OrderID: "order-1"})

		if !errors.Is(err, ports.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("rejects cancelling a paid order", func(t *testing.T) {
		repo := &mockOrderRepository{
			getByIDFn: func(_ context.Context, id string) (*domain.Order, error) {
				order := pendingOrder(id, "user-1")
				order.Status = domain.StatusPaid
				return order, nil
			},
		}
		handler := commands.NewCancelOrderCommandHandler(repo, &mockLedger{}, &mockEventBus{})

		_, err := handler.Handle(context.Background(), commands.CancelOrderCommand{UserID: "user-1", OrderID: "order-1"})

		if !errors.Is(err, domain.ErrAlreadySettled) {
			t.Fatalf("expected ErrAlreadySettled, got: %v", err)
		}
	})

	t.Run("rejects cancelling an already cancelled order", func(t *testing.T) {
		repo := &mockOrderRepository{
			getByIDFn: func(_ context.Context, id string) (*domain.Order, error) {
				order := pendingOrder(id, "user-1")
				order.Status = domain.StatusCancelled
				return order, nil
			},
		}
		handler := commands.NewCancelOrderCommandHandler(repo, &mockLedger{}, &mockEventBus{})

		_, err := handler.Handle(context.Background(), commands.CancelOrderCommand{UserID: "user-1", OrderID: "order-1"})

		if !errors.Is(err, domain.ErrOrderNotPending) {
			t.Fatalf("expected ErrOrderNotPending, got: %v", err)
		}
	})

	t.Run("surfaces conflict when a concurrent verify wins the transition", func(t *testing.T) {
		repo := &mockOrderRepository{
			getByIDFn: func(_ context.Context, id string) (*domain.Order, error) {
				return pendingOrder(id, "user-1"), nil
			},
			updateStatusFn: func(_ context.Context, _ string, _, _ domain.OrderStatus) error {
				return ports.ErrStatusConflict
			},
		}
		restoreCalled := false
		ledger := &mockLedger{
			restoreFn: func(_ context.Context, _ string, _ int) error {
				restoreCalled = true
				return nil
			},
		}
		handler := commands.NewCancelOrderCommandHandler(repo, ledger, &mockEventBus{})

		_, err := handler.Handle(context.Background(), commands.CancelOrderCommand{UserID: "user-1", OrderID: "order-1"})

		if !errors.Is(err, ports.ErrStatusConflict) {
			t.Fatalf("expected ErrStatusConflict, got: %v", err)
		}
		if restoreCalled {
			t.Error("stock must not be restored when the transition is lost")
		}
	})
}
