package domain

import (
	"errors"
	"time"
)

// OrderStatus captures the payment lifecycle of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
	StatusFailed    OrderStatus = "failed"
)

var (
	// ErrOrderNotPending is returned for an operation that requires a
	// pending order, e.g. initiating payment on a cancelled one.
	ErrOrderNotPending = errors.New("order is not pending")

	// ErrAlreadySettled is returned when cancellation is attempted after
	// the order was paid.
	ErrAlreadySettled = errors.New("order already settled")
)

// LineItem is one frozen line of an order. The unit price is copied from the
// catalog at checkout time and never updated afterwards.
type LineItem struct {
	ProductID      string `json:"product_id"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// Order is an immutable snapshot of a cart taken at checkout. Only the
// status (and its timestamp) may change after creation, and only through
// legal transitions.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Items      []LineItem  `json:"items"`
	TotalCents int64       `json:"total_cents"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// ComputeTotal sums unit price times quantity over the lines. It runs once,
// at order creation.
func ComputeTotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	return total
}

// IsTerminal reports whether the order reached a final state. Terminal
// orders never transition again.
func (o Order) IsTerminal() bool {
	switch o.Status {
	case StatusPaid, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from → to is a legal status move. The only
// legal moves are out of pending.
func CanTransition(from, to OrderStatus) bool {
	if from != StatusPending {
		return false
	}
	switch to {
	case StatusPaid, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}
