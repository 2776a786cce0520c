package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	cartdomain "github.com/mpetrovic/storefront/internal/cart/domain"
	cartports "github.com/mpetrovic/storefront/internal/cart/ports"
	"github.com/mpetrovic/storefront/internal/catalog"
	"github.com/mpetrovic/storefront/internal/inventory"
	"github.com/mpetrovic/storefront/internal/orders/domain"
	"github.com/mpetrovic/storefront/internal/orders/ports"
)

var (
	// ErrEmptyCart rejects checkout before any network call is made.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrStaleCatalog is returned when a cart references a product that no
	// longer exists in the catalog.
	ErrStaleCatalog = errors.New("cart references a product that no longer exists")
)

type CheckoutCommand struct {
	UserID string
}

func (c CheckoutCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("user_id is required")
	}
	return nil
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd CheckoutCommand) (*domain.Order, error)
}

// CheckoutCommandHandler converts the user's cart into a pending order with
// a frozen price snapshot. Stock is decremented here, at creation time;
// cancellation restores it and payment success leaves it alone.
type CheckoutCommandHandler struct {
	orders  ports.OrderRepository
	carts   cartports.CartRepository
	catalog catalog.ProductReader
	stock   inventory.StockLedger
	events  ports.EventBus
}

func NewCheckoutCommandHandler(
	orders ports.OrderRepository,
	carts cartports.CartRepository,
	reader catalog.ProductReader,
	stock inventory.StockLedger,
	events ports.EventBus,
) *CheckoutCommandHandler {
	return &CheckoutCommandHandler{
		orders:  orders,
		carts:   carts,
		catalog: reader,
		stock:   stock,
		events:  events,
	}
}

func (h *CheckoutCommandHandler) Handle(ctx context.Context, cmd CheckoutCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	cart, err := h.carts.Get(ctx, cmd.UserID)
	if err != nil {
		if errors.Is(err, cartports.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items, err := h.freezeLineItems(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	order := domain.Order{
		ID:         uuid.NewString(),
		UserID:     cmd.UserID,
		Items:      items,
		TotalCents: domain.ComputeTotal(items),
		Status:     domain.StatusPending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	reserved, err := h.reserveStock(ctx, items)
	if err != nil {
		h.releaseStock(ctx, reserved)
		return nil, err
	}

	if err := h.orders.Create(ctx, order); err != nil {
		h.releaseStock(ctx, items)
		return nil, fmt.Errorf("create order: %w", err)
	}

	// The cart is cleared only now, after the order row is durable.
	if err := h.carts.Clear(ctx, cmd.UserID); err != nil {
		return &order, fmt.Errorf("order created but cart not cleared: %w", err)
	}

	if err := h.events.PublishOrderCreated(ctx, order.ID); err != nil {
		return &order, fmt.Errorf("order created but failed to publish event: %w", err)
	}

	return &order, nil
}

func (h *CheckoutCommandHandler) freezeLineItems(ctx context.Context, cartItems []cartdomain.Item) ([]domain.LineItem, error) {
	ids := make([]string, 0, len(cartItems))
	for _, item := range cartItems {
		ids = append(ids, item.ProductID)
	}

	products, err := h.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	items := make([]domain.LineItem, 0, len(cartItems))
	for _, item := range cartItems {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, ErrStaleCatalog)
		}
		items = append(items, domain.LineItem{
			ProductID:      item.ProductID,
			UnitPriceCents: product.PriceCents,
			Quantity:       item.Quantity,
		})
	}

	return items, nil
}

// reserveStock decrements each line and returns the lines it managed to
// decrement, so the caller can roll them back on failure.
func (h *CheckoutCommandHandler) reserveStock(ctx context.Context, items []domain.LineItem) ([]domain.LineItem, error) {
	var reserved []domain.LineItem
	for _, item := range items {
		if err := h.stock.Decrement(ctx, item.ProductID, item.Quantity); err != nil {
			return reserved, fmt.Errorf("reserve stock for %s: %w", item.ProductID, err)
		}
		reserved = append(reserved, item)
	}
	return reserved, nil
}

func (h *CheckoutCommandHandler) releaseStock(ctx context.Context, items []domain.LineItem) {
	for _, item := range items {
		// Restore failures are logged by the ledger adapter; nothing more
		// the checkout path can do here.
		_ = h.stock.Restore(ctx, item.ProductID, item.Quantity)
	}
}
