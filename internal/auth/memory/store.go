package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mpetrovic/storefront/internal/auth"
)

// Store is an in-memory TokenStore for tests and local runs.
type Store struct {
	mu     sync.RWMutex
	tokens map[string]auth.Token
}

func NewStore() *Store {
	return &Store{tokens: make(map[string]auth.Token)}
}

// Put registers a token. A zero ExpiresAt never expires.
func (s *Store) Put(token auth.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Value] = token
}

func (s *Store) Resolve(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[token]
	if !ok {
		return "", auth.ErrTokenInvalid
	}
	if !t.ExpiresAt.IsZero() && time.Now().UTC().After(t.ExpiresAt) {
		return "", auth.ErrTokenInvalid
	}
	return t.UserID, nil
}
