package memory

import (
	"context"
	"sync"

	"github.com/mpetrovic/storefront/internal/orders/ports"
)

// Store retains idempotency responses for replaying duplicate requests.
// A key is first claimed with a placeholder, then filled in with Save;
// status code zero marks a claim without a response yet.
type Store struct {
	mu    sync.RWMutex
	items map[string]ports.StoredResponse
}

// NewStore creates a new in-memory idempotency store.
func NewStore() *Store {
	return &Store{items: make(map[string]ports.StoredResponse)}
}

// Get returns the stored response for a key, or nil when the key is unknown
// or only claimed so far.
func (s *Store) Get(_ context.Context, key string) (*ports.StoredResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	if !ok || value.StatusCode == 0 {
		return nil, nil
	}
	stored := value
	return &stored, nil
}

// Claim reserves the key. Exactly one concurrent caller gets true.
func (s *Store) Claim(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		return false, nil
	}
	s.items[key] = ports.StoredResponse{}
	return true, nil
}

// Save fills in the response on a claimed key.
func (s *Store) Save(_ context.Context, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok && existing.StatusCode != 0 {
		return nil
	}
	s.items[key] = response
	return nil
}

// Release drops a claimed key so the client can retry. Filled-in entries
// are left alone.
func (s *Store) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok && existing.StatusCode == 0 {
		delete(s.items, key)
	}
	return nil
}
