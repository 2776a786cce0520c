package auth

import (
	"context"
	"errors"
	"time"
)

// ErrTokenInvalid covers unknown, malformed, and expired tokens alike, so a
// caller cannot probe which tokens exist.
var ErrTokenInvalid = errors.New("invalid or expired token")

// Token is a bearer credential bound to one user.
type Token struct {
	Value     string
	UserID    string
	ExpiresAt time.Time
}

// TokenStore resolves bearer tokens to users.
type TokenStore interface {
	// Resolve returns the user id for a live token, or ErrTokenInvalid.
	Resolve(ctx context.Context, token string) (string, error)
}

type contextKey struct{}

// WithUserID stamps the authenticated user onto the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user, if any.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextKey{}).(string)
	return userID, ok && userID != ""
}
