package ports

import (
	"context"
	"errors"
)

// StoredResponse contains the response data to replay for a reused key.
type StoredResponse struct {
	StatusCode int
	Body       []byte
	OrderID    string
}

// ErrRequestInFlight is returned when a key is claimed but its response has
// not been stored yet: another request with the same key is still running.
var ErrRequestInFlight = errors.New("request with this idempotency key is in flight")

// IdempotencyStore makes checkout safely retryable: a duplicate submission
// with the same client token replays the first response instead of creating
// a second order.
//
// Claim reserves a key before any side effects run, so two overlapping
// requests cannot both proceed: exactly one claim succeeds, the loser waits
// for the stored response or reports the request as in flight. A claimed key
// is filled in with Save, or given back with Release when the work failed.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Claim(ctx context.Context, key string) (bool, error)
	Save(ctx context.Context, key string, response StoredResponse) error
	Release(ctx context.Context, key string) error
}
