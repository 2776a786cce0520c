package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mpetrovic/storefront/internal/payments/ports"
	"github.com/sony/gobreaker/v2"
)

// Client talks to the payment provider's REST API. Calls run through a
// circuit breaker so a degraded provider fails fast instead of tying up
// checkout requests.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*ports.GatewayOrder]
	logger     *slog.Logger
}

func NewClient(baseURL, keyID, keySecret string, logger *slog.Logger) *Client {
	c := &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[*ports.GatewayOrder](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("gateway circuit breaker state changed",
				"name", name, "from", from.String(), "to", to.String())
		},
	})

	return c
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type createOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateOrder registers the amount with the provider and returns the gateway
// order the client widget collects against.
func (c *Client) CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (*ports.GatewayOrder, error) {
	return c.breaker.Execute(func() (*ports.GatewayOrder, error) {
		return c.createOrder(ctx, amountCents, currency, receipt)
	})
}

func (c *Client) createOrder(ctx context.Context, amountCents int64, currency, receipt string) (*ports.GatewayOrder, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amountCents,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.ErrorContext(ctx, "gateway rejected order",
			"status", resp.StatusCode, "body", string(payload))
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var parsed createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if parsed.ID == "" {
		return nil, fmt.Errorf("payment gateway returned no order id")
	}

	return &ports.GatewayOrder{
		ID:          parsed.ID,
		AmountCents: parsed.Amount,
		Currency:    parsed.Currency,
	}, nil
}
