package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mpetrovic/storefront/internal/auth"
	authmemory "github.com/mpetrovic/storefront/internal/auth/memory"
	cartmemory "github.com/mpetrovic/storefront/internal/cart/adapters/memory"
	cartapp "github.com/mpetrovic/storefront/internal/cart/app"
	cartdomain "github.com/mpetrovic/storefront/internal/cart/domain"
	cartports "github.com/mpetrovic/storefront/internal/cart/ports"
	"github.com/mpetrovic/storefront/internal/catalog"
	catalogmemory "github.com/mpetrovic/storefront/internal/catalog/memory"
	"github.com/mpetrovic/storefront/internal/httpapi"
	idemmemory "github.com/mpetrovic/storefront/internal/idempotency/memory"
	inventorymemory "github.com/mpetrovic/storefront/internal/inventory/memory"
	"github.com/mpetrovic/storefront/internal/kafka"
	ordersmemory "github.com/mpetrovic/storefront/internal/orders/adapters/memory"
	ordersapp "github.com/mpetrovic/storefront/internal/orders/app"
	ordersmetrics "github.com/mpetrovic/storefront/internal/orders/metrics"
	"github.com/mpetrovic/storefront/internal/payments/adapters/gateway"
	paymentsmemory "github.com/mpetrovic/storefront/internal/payments/adapters/memory"
	paymentsapp "github.com/mpetrovic/storefront/internal/payments/app"
	paymentsdomain "github.com/mpetrovic/storefront/internal/payments/domain"
	paymentsmetrics "github.com/mpetrovic/storefront/internal/payments/metrics"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const gatewaySecret = "test-secret"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	return newTestServerWithCart(t, cartmemory.NewRepository())
}

func newTestServerWithCart(t *testing.T, cartRepo cartports.CartRepository) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	meter := sdkmetric.NewMeterProvider().Meter("test")

	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		t.Fatalf("order metrics: %v", err)
	}
	paymentMetrics, err := paymentsmetrics.NewMetrics(meter)
	if err != nil {
		t.Fatalf("payment metrics: %v", err)
	}
	httpMetrics, err := httpapi.NewMetrics(meter)
	if err != nil {
		t.Fatalf("http metrics: %v", err)
	}

	reader := catalogmemory.NewReader(
		catalog.Product{ID: "prod-1", Name: "Widget", PriceCents: 1000, Stock: 10},
		catalog.Product{ID: "prod-2", Name: "Gadget", PriceCents: 500, Stock: 5},
	)
	ledger := inventorymemory.NewLedger(map[string]int{"prod-1": 10, "prod-2": 5})
	orderRepo := ordersmemory.NewRepository()
	sessionRepo := paymentsmemory.NewRepository()
	events := kafka.NewNoopEventBus()

	cartService := cartapp.NewService(cartRepo, cartmemory.NewCache(), reader, logger)
	orderService := ordersapp.NewService(orderRepo, cartRepo, reader, ledger, events, idemmemory.NewStore(), logger, orderMetrics)
	paymentService := paymentsapp.NewService(
		sessionRepo, orderRepo, gateway.NewStub(), events, logger, paymentMetrics,
		paymentsapp.Config{KeyID: "key_test", KeySecret: gatewaySecret, Currency: "INR", SessionTTL: 15 * time.Minute},
	)

	tokens := authmemory.NewStore()
	tokens.Put(auth.Token{Value: "token-1", UserID: "user-1"})
	tokens.Put(auth.Token{Value: "token-2", UserID: "user-2"})

	return httpapi.NewRouter(httpapi.RouterConfig{
		Cart:     httpapi.NewCartHandler(cartService),
		Orders:   httpapi.NewOrderHandler(orderService),
		Payments: httpapi.NewPaymentHandler(paymentService),
		Tokens:   tokens,
		Metrics:  httpMetrics,
		Logger:   logger,
		Ready:    func(context.Context) error { return nil },
	})
}

// slowCartRepository stretches the cart read to widen the window between
// overlapping checkout requests.
type slowCartRepository struct {
	cartports.CartRepository
	delay time.Duration
}

func (r slowCartRepository) Get(ctx context.Context, userID string) (*cartdomain.Cart, error) {
	time.Sleep(r.delay)
	return r.CartRepository.Get(ctx, userID)
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestAuthentication(t *testing.T) {
	handler := newTestServer(t)

	t.Run("rejects requests without a token", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/v1/cart", "", nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/v1/cart", "bogus", nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("health endpoints need no token", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestCartEndpoints(t *testing.T) {
	t.Run("add then view prices the cart", func(t *testing.T) {
		handler := newTestServer(t)

		rec := doJSON(t, handler, http.MethodPost, "/v1/cart/items", "token-1",
			map[string]any{"product_id": "prod-1", "quantity": 2}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, handler, http.MethodGet, "/v1/cart", "token-1", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Cart struct {
				SubtotalCents int64 `json:"subtotal_cents"`
				Items         []struct {
					ProductID string `json:"product_id"`
					Quantity  int    `json:"quantity"`
				} `json:"items"`
			} `json:"cart"`
		}
		decode(t, rec, &resp)
		if resp.Cart.SubtotalCents != 2000 {
			t.Errorf("expected subtotal 2000, got %d", resp.Cart.SubtotalCents)
		}
		if len(resp.Cart.Items) != 1 || resp.Cart.Items[0].Quantity != 2 {
			t.Errorf("unexpected items: %+v", resp.Cart.Items)
		}
	})

	t.Run("rejects unknown product with 404", func(t *testing.T) {
		handler := newTestServer(t)

		rec := doJSON(t, handler, http.MethodPost, "/v1/cart/items", "token-1",
			map[string]any{"product_id": "nope"}, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("rejects over-stock add with 409", func(t *testing.T) {
		handler := newTestServer(t)

		rec := doJSON(t, handler, http.MethodPost, "/v1/cart/items", "token-1",
			map[string]any{"product_id": "prod-2", "quantity": 50}, nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("carts are isolated per user", func(t *testing.T) {
		handler := newTestServer(t)

		doJSON(t, handler, http.MethodPost, "/v1/cart/items", "token-1",
			map[string]any{"product_id": "prod-1", "quantity": 1}, nil)

		rec := doJSON(t, handler, http.MethodGet, "/v1/cart", "token-2", nil, nil)
		var resp struct {
			Cart struct {
				Items []any `json:"items"`
			} `json:"cart"`
		}
		decode(t, rec, &resp)
		if len(resp.Cart.Items) != 0 {
			t.Errorf("expected empty cart for other user, got %d items", len(resp.Cart.Items))
		}
	})
}

func checkoutOrder(t *testing.T, handler http.Handler, token string) string {
	t.Helper()

	doJSON(t, handler, http.MethodPost, "/v1/cart/items", token,
		map[string]any{"product_id": "prod-1", "quantity": 2}, nil)

	rec := doJSON(t, handler, http.MethodPost, "/v1/orders", token, nil,
		map[string]string{"Idempotency-Key": "key-" + token})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	decode(t, rec, &resp)
	return resp.Order.ID
}

func TestCheckoutEndpoint(t *testing.T) {
	t.Run("requires an idempotency key", func(t *testing.T) {
		handler := newTestServer(t)
		rec := doJSON(t, handler, http.MethodPost, "/v1/orders", "token-1", nil, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects an empty cart with 422", func(t *testing.T) {
		handler := newTestServer(t)
		rec := doJSON(t, handler, http.MethodPost, "/v1/orders", "token-1", nil,
			map[string]string{"Idempotency-Key": "key-1"})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("replays the first response for a reused key", func(t *testing.T) {
		handler := newTestServer(t)

		doJSON(t, handler, http.MethodPost, "/v1/cart/items", "token-1",
			map[string]any{"product_id": "prod-1", "quantity": 1}, nil)

		headers := map[string]string{"Idempotency-Key": "retry-key"}
		first := doJSON(t, handler, http.MethodPost, "/v1/orders", "token-1", nil, headers)
		if first.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", first.Code)
		}

		second := doJSON(t, handler, http.MethodPost, "/v1/orders", "token-1", nil, headers)
		if second.Code != http.StatusCreated {
			t.Fatalf("expected replayed 201, got %d", second.Code)
		}
		if first.Body.String() != second.Body.String() {
			t.Error("expected identical replayed body")
		}
	})

	t.Run("overlapping requests with one key create a single order", func(t *testing.T) {
		handler := newTestServerWithCart(t, slowCartRepository{
			CartRepository: cartmemory.NewRepository(),
			delay:          20 * time.Millisecond,
		})

		doJSON(t, handler, http.MethodPost, "/v1/cart/items", "token-1",
			map[string]any{"product_id": "prod-1", "quantity": 1}, nil)

		headers := map[string]string{"Idempotency-Key": "burst-key"}
		codes := make(chan int, 2)
		for i := 0; i < 2; i++ {
			go func() {
				rec := doJSON(t, handler, http.MethodPost, "/v1/orders", "token-1", nil, headers)
				codes <- rec.Code
			}()
		}
		for i := 0; i < 2; i++ {
			code := <-codes
			if code != http.StatusCreated && code != http.StatusConflict {
				t.Errorf("expected 201 or 409, got %d", code)
			}
		}

		rec := doJSON(t, handler, http.MethodGet, "/v1/orders", "token-1", nil, nil)
		var resp struct {
			Orders []any `json:"orders"`
		}
		decode(t, rec, &resp)
		if len(resp.Orders) != 1 {
			t.Errorf("expected one order for one idempotency key, got %d", len(resp.Orders))
		}
	})

	t.Run("clears the cart after checkout", func(t *testing.T) {
		handler := newTestServer(t)
		checkoutOrder(t, handler, "token-1")

		rec := doJSON(t, handler, http.MethodGet, "/v1/cart", "token-1", nil, nil)
		var resp struct {
			Cart struct {
				Items []any `json:"items"`
			} `json:"cart"`
		}
		decode(t, rec, &resp)
		if len(resp.Cart.Items) != 0 {
			t.Errorf("expected cleared cart, got %d items", len(resp.Cart.Items))
		}
	})
}

func TestOrderEndpoints(t *testing.T) {
	t.Run("another user's order is 404", func(t *testing.T) {
		handler := newTestServer(t)
		orderID := checkoutOrder(t, handler, "token-1")

		rec := doJSON(t, handler, http.MethodGet, "/v1/orders/"+orderID, "token-2", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("cancel moves a pending order to cancelled", func(t *testing.T) {
		handler := newTestServer(t)
		orderID := checkoutOrder(t, handler, "token-1")

		rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/v1/orders/%s/cancel", orderID), "token-1", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Order struct {
				Status string `json:"status"`
			} `json:"order"`
		}
		decode(t, rec, &resp)
		if resp.Order.Status != "cancelled" {
			t.Errorf("expected cancelled, got %s", resp.Order.Status)
		}
	})
}

func TestPaymentEndpoints(t *testing.T) {
	initiate := func(t *testing.T, handler http.Handler, orderID string) (gatewayOrderID string) {
		t.Helper()
		rec := doJSON(t, handler, http.MethodPost, "/v1/payments/checkout", "token-1",
			map[string]any{"order_id": orderID}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("initiate: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Payment struct {
				GatewayOrderID string `json:"gateway_order_id"`
			} `json:"payment"`
		}
		decode(t, rec, &resp)
		return resp.Payment.GatewayOrderID
	}

	t.Run("full handshake settles the order", func(t *testing.T) {
		handler := newTestServer(t)
		orderID := checkoutOrder(t, handler, "token-1")
		gatewayOrderID := initiate(t, handler, orderID)

		rec := doJSON(t, handler, http.MethodPost, "/v1/payments/verify", "token-1", map[string]any{
			"payment_id":       "pay_1",
			"gateway_order_id": gatewayOrderID,
			"signature":        paymentsdomain.Signature(gatewaySecret, gatewayOrderID, "pay_1"),
			"order_id":         orderID,
		}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		orderRec := doJSON(t, handler, http.MethodGet, "/v1/orders/"+orderID, "token-1", nil, nil)
		var resp struct {
			Order struct {
				Status string `json:"status"`
			} `json:"order"`
		}
		decode(t, orderRec, &resp)
		if resp.Order.Status != "paid" {
			t.Errorf("expected paid, got %s", resp.Order.Status)
		}
	})

	t.Run("tampered signature is 422", func(t *testing.T) {
		handler := newTestServer(t)
		orderID := checkoutOrder(t, handler, "token-1")
		gatewayOrderID := initiate(t, handler, orderID)

		rec := doJSON(t, handler, http.MethodPost, "/v1/payments/verify", "token-1", map[string]any{
			"payment_id":       "pay_1",
			"gateway_order_id": gatewayOrderID,
			"signature":        "forged",
			"order_id":         orderID,
		}, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("cancelling a paid order is 409", func(t *testing.T) {
		handler := newTestServer(t)
		orderID := checkoutOrder(t, handler, "token-1")
		gatewayOrderID := initiate(t, handler, orderID)

		doJSON(t, handler, http.MethodPost, "/v1/payments/verify", "token-1", map[string]any{
			"payment_id":       "pay_1",
			"gateway_order_id": gatewayOrderID,
			"signature":        paymentsdomain.Signature(gatewaySecret, gatewayOrderID, "pay_1"),
			"order_id":         orderID,
		}, nil)

		rec := doJSON(t, handler, http.MethodPost, fmt.Sprintf("/v1/orders/%s/cancel", orderID), "token-1", nil, nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("second initiate on the same order is 409", func(t *testing.T) {
		handler := newTestServer(t)
		orderID := checkoutOrder(t, handler, "token-1")
		initiate(t, handler, orderID)

		rec := doJSON(t, handler, http.MethodPost, "/v1/payments/checkout", "token-1",
			map[string]any{"order_id": orderID}, nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}
