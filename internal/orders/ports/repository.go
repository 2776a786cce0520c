package ports

import (
	"context"
	"errors"

	"github.com/mpetrovic/storefront/internal/orders/domain"
)

// OrderRepository exposes persistence operations required by the application layer.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]domain.Order, error)

	// UpdateStatus is compare-and-set: the row transitions to the new status
	// only if its current status is exactly from, otherwise ErrStatusConflict.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
}

// ListFilter narrows list queries by status and pagination.
type ListFilter struct {
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

var (
	// ErrNotFound is returned when the requested order does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrStatusConflict is returned when a compare-and-set transition finds
	// a status other than the expected one.
	ErrStatusConflict = errors.New("order status conflict")
)
