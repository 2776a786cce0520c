package domain_test

import (
	"testing"

	"github.com/mpetrovic/storefront/internal/orders/domain"
)

func TestComputeTotal(t *testing.T) {
	t.Run("sums unit price times quantity over lines", func(t *testing.T) {
		items := []domain.LineItem{
			{ProductID: "a", UnitPriceCents: 1000, Quantity: 2},
			{ProductID: "b", UnitPriceCents: 500, Quantity: 1},
		}

		if total := domain.ComputeTotal(items); total != 2500 {
			t.Errorf("expected 2500, got %d", total)
		}
	})

	t.Run("empty order totals zero", func(t *testing.T) {
		if total := domain.ComputeTotal(nil); total != 0 {
			t.Errorf("expected 0, got %d", total)
		}
	})
}

func TestCanTransition(t *testing.T) {
	legal := []struct {
		from, to domain.OrderStatus
	}{
		{domain.StatusPending, domain.StatusPaid},
		{domain.StatusPending, domain.StatusCancelled},
		{domain.StatusPending, domain.StatusFailed},
	}
	for _, tc := range legal {
		if !domain.CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	illegal := []struct {
		from, to domain.OrderStatus
	}{
		{domain.StatusPaid, domain.StatusCancelled},
		{domain.StatusCancelled, domain.StatusPaid},
		{domain.StatusFailed, domain.StatusPending},
		{domain.StatusPending, domain.StatusPending},
	}
	for _, tc := range illegal {
		if domain.CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if (domain.Order{Status: domain.StatusPending}).IsTerminal() {
		t.Error("pending must not be terminal")
	}
	for _, status := range []domain.OrderStatus{domain.StatusPaid, domain.StatusCancelled, domain.StatusFailed} {
		if !(domain.Order{Status: status}).IsTerminal() {
			t.Errorf("%s must be terminal", status)
		}
	}
}
