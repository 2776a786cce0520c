package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// SessionStatus tracks one payment attempt against the gateway.
type SessionStatus string

const (
	// SessionCreated means the gateway order exists and the client widget
	// may still collect payment.
	SessionCreated SessionStatus = "created"
	// SessionCaptured means the callback was verified and the order paid.
	SessionCaptured SessionStatus = "captured"
	// SessionExpired means the validity window lapsed before a callback.
	SessionExpired SessionStatus = "expired"
	// SessionFailed means verification failed terminally.
	SessionFailed SessionStatus = "failed"
)

var (
	// ErrSignatureMismatch means the callback signature does not match the
	// gateway secret. Treated as tampering; the order is never finalized.
	ErrSignatureMismatch = errors.New("payment signature mismatch")

	// ErrSessionExpired means the collect window lapsed before verification.
	ErrSessionExpired = errors.New("payment session expired")

	// ErrSessionActive rejects opening a second session while one is still
	// collectable for the same order.
	ErrSessionActive = errors.New("order already has an active payment session")

	// ErrSessionNotFound is returned when no session matches the lookup.
	ErrSessionNotFound = errors.New("payment session not found")
)

// Session binds exactly one order to one gateway payment attempt.
type Session struct {
	ID             string        `json:"id"`
	OrderID        string        `json:"order_id"`
	GatewayOrderID string        `json:"gateway_order_id"`
	PaymentID      string        `json:"payment_id,omitempty"`
	AmountCents    int64         `json:"amount_cents"`
	Currency       string        `json:"currency"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	ExpiresAt      time.Time     `json:"expires_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// IsTerminal reports whether the session can still collect a payment.
func (s Session) IsTerminal() bool {
	switch s.Status {
	case SessionCaptured, SessionExpired, SessionFailed:
		return true
	default:
		return false
	}
}

// ExpiredAt reports whether the collect window has lapsed at the given time.
func (s Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Signature computes the callback signature the gateway produces:
// HMAC-SHA256 over "<gateway order id>|<payment id>" keyed with the secret,
// hex encoded.
func Signature(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback signature in constant time.
func VerifySignature(secret, gatewayOrderID, paymentID, signature string) bool {
	expected := Signature(secret, gatewayOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
