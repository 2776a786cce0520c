package ports

import (
	"context"
	"errors"
	"time"

	"github.com/mpetrovic/storefront/internal/payments/domain"
)

// ErrStatusConflict is returned when a compare-and-set transition finds a
// session status other than the expected one.
var ErrStatusConflict = errors.New("payment session status conflict")

// SessionRepository persists payment sessions. Status mutations are
// compare-and-set, mirroring the order repository contract.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Session, error)

	// GetActiveByOrderID returns the order's non-terminal session, or
	// domain.ErrSessionNotFound when every session is terminal.
	GetActiveByOrderID(ctx context.Context, orderID string) (*domain.Session, error)

	// UpdateStatus moves the session to the new status only when the
	// current one matches from, recording the payment id when one is
	// known. A stale expected status yields ErrStatusConflict.
	UpdateStatus(ctx context.Context, id string, from, to domain.SessionStatus, paymentID string) error

	// ListExpired returns still-created sessions whose window lapsed
	// before the cutoff, for the expiry reaper.
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]domain.Session, error)
}
