package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mpetrovic/storefront/internal/inventory"
	"github.com/mpetrovic/storefront/internal/orders/domain"
	"github.com/mpetrovic/storefront/internal/orders/ports"
)

type CancelOrderCommand struct {
	UserID  string
	OrderID string
}

func (c CancelOrderCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(c.OrderID) == "" {
		return errors.New("order_id is required")
	}
	return nil
}

// CancelOrderCommandHandler cancels a pending order and restores its stock.
// The pending → cancelled move is compare-and-set, so a verify landing first
// makes this fail with ErrStatusConflict instead of overwriting a paid order.
type CancelOrderCommandHandler struct {
	orders ports.OrderRepository
	stock  inventory.StockLedger
	events ports.EventBus
}

func NewCancelOrderCommandHandler(
	orders ports.OrderRepository,
	stock inventory.StockLedger,
	events ports.EventBus,
) *CancelOrderCommandHandler {
	return &CancelOrderCommandHandler{orders: orders, stock: stock, events: events}
}

func (h *CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	order, err := h.orders.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != cmd.UserID {
		// Another user's order looks like a missing one.
		return nil, ports.ErrNotFound
	}

	switch order.Status {
	case domain.StatusPaid:
		return nil, domain.ErrAlreadySettled
	case domain.StatusCancelled, domain.StatusFailed:
		return nil, domain.ErrOrderNotPending
	}

	if err := h.orders.UpdateStatus(ctx, order.ID, domain.StatusPending, domain.StatusCancelled); err != nil {
		return nil, err
	}

	order.Status = domain.StatusCancelled
	order.UpdatedAt = time.Now().UTC()

	for _, item := range order.Items {
		if err := h.stock.Restore(ctx, item.ProductID, item.Quantity); err != nil {
			return order, fmt.Errorf("order cancelled but stock not restored for %s: %w", item.ProductID, err)
		}
	}

	if err := h.events.PublishOrderCancelled(ctx, order.ID); err != nil {
		return order, fmt.Errorf("order cancelled but failed to publish event: %w", err)
	}

	return order, nil
}
