package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mpetrovic/storefront/internal/payments/domain"
	"github.com/mpetrovic/storefront/internal/payments/ports"
)

// Repository is an in-memory SessionRepository for tests and local runs.
type Repository struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewRepository() *Repository {
	return &Repository{sessions: make(map[string]domain.Session)}
}

func (r *Repository) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	return nil
}

func (r *Repository) GetByGatewayOrderID(_ context.Context, gatewayOrderID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, session := range r.sessions {
		if session.GatewayOrderID == gatewayOrderID {
			s := session
			return &s, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (r *Repository) GetActiveByOrderID(_ context.Context, orderID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Session
	for _, session := range r.sessions {
		if session.OrderID != orderID || session.Status != domain.SessionCreated {
			continue
		}
		s := session
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = &s
		}
	}
	if latest == nil {
		return nil, domain.ErrSessionNotFound
	}
	return latest, nil
}

func (r *Repository) UpdateStatus(_ context.Context, id string, from, to domain.SessionStatus, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Status != from {
		return ports.ErrStatusConflict
	}

	session.Status = to
	if paymentID != "" {
		session.PaymentID = paymentID
	}
	session.UpdatedAt = time.Now().UTC()
	r.sessions[id] = session

	return nil
}

func (r *Repository) ListExpired(_ context.Context, cutoff time.Time, limit int) ([]domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []domain.Session
	for _, session := range r.sessions {
		if session.Status == domain.SessionCreated && session.ExpiresAt.Before(cutoff) {
			expired = append(expired, session)
			if len(expired) == limit {
				break
			}
		}
	}
	return expired, nil
}
