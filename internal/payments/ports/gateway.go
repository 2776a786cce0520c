package ports

import "context"

// GatewayOrder is the gateway's handle for one collectable payment.
type GatewayOrder struct {
	ID          string
	AmountCents int64
	Currency    string
}

// GatewayClient is the server-side contract with the external payment
// gateway. The client-side collection widget is driven by the browser; the
// core only creates gateway orders and later verifies callbacks.
type GatewayClient interface {
	CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (*GatewayOrder, error)
}
