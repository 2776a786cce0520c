package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mpetrovic/storefront/internal/auth"
)

// RouterConfig collects everything the router needs. Ready is called by the
// readiness probe; it should ping the backing stores.
type RouterConfig struct {
	Cart     *CartHandler
	Orders   *OrderHandler
	Payments *PaymentHandler
	Tokens   auth.TokenStore
	Metrics  *Metrics
	Logger   *slog.Logger
	Ready    func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(WithMetrics(cfg.Metrics))
	r.Use(withLogging(cfg.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := cfg.Ready(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(auth.Middleware(cfg.Tokens, cfg.Logger))
		cfg.Cart.Register(v1)
		cfg.Orders.Register(v1)
		cfg.Payments.Register(v1)
	})

	return r
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}
