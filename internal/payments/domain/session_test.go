package domain_test

import (
	"testing"
	"time"

	"github.com/mpetrovic/storefront/internal/payments/domain"
)

func TestSignature(t *testing.T) {
	t.Run("accepts a signature computed with the same secret", func(t *testing.T) {
		sig := domain.Signature("secret", "order_gw_1", "pay_1")

		if !domain.VerifySignature("secret", "order_gw_1", "pay_1", sig) {
			t.Error("expected signature to verify")
		}
	})

	t.Run("rejects a tampered payment id", func(t *testing.T) {
		sig := domain.Signature("secret", "order_gw_1", "pay_1")

		if domain.VerifySignature("secret", "order_gw_1", "pay_2", sig) {
			t.Error("expected tampered payment id to fail verification")
		}
	})

	t.Run("rejects a signature from a different secret", func(t *testing.T) {
		sig := domain.Signature("other-secret", "order_gw_1", "pay_1")

		if domain.VerifySignature("secret", "order_gw_1", "pay_1", sig) {
			t.Error("expected foreign signature to fail verification")
		}
	})

	t.Run("rejects an empty signature", func(t *testing.T) {
		if domain.VerifySignature("secret", "order_gw_1", "pay_1", "") {
			t.Error("expected empty signature to fail verification")
		}
	})
}

func TestSessionExpiry(t *testing.T) {
	now := time.Now().UTC()
	session := domain.Session{ExpiresAt: now.Add(15 * time.Minute)}

	if session.ExpiredAt(now) {
		t.Error("session must not be expired inside its window")
	}
	if !session.ExpiredAt(now.Add(16 * time.Minute)) {
		t.Error("session must be expired after its window")
	}
}

func TestSessionIsTerminal(t *testing.T) {
	if (domain.Session{Status: domain.SessionCreated}).IsTerminal() {
		t.Error("created must not be terminal")
	}
	for _, status := range []domain.SessionStatus{domain.SessionCaptured, domain.SessionExpired, domain.SessionFailed} {
		if !(domain.Session{Status: status}).IsTerminal() {
			t.Errorf("%s must be terminal", status)
		}
	}
}
