package gateway

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mpetrovic/storefront/internal/payments/ports"
)

// Stub is an in-process gateway for local development and tests. Order ids
// are deterministic per process.
type Stub struct {
	seq atomic.Int64
}

func NewStub() *Stub {
	return &Stub{}
}

func (s *Stub) CreateOrder(_ context.Context, amountCents int64, currency, _ string) (*ports.GatewayOrder, error) {
	return &ports.GatewayOrder{
		ID:          fmt.Sprintf("order_stub_%06d", s.seq.Add(1)),
		AmountCents: amountCents,
		Currency:    currency,
	}, nil
}
