package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mpetrovic/storefront/internal/auth"
	ordersapp "github.com/mpetrovic/storefront/internal/orders/app"
	"github.com/mpetrovic/storefront/internal/orders/domain"
	"github.com/mpetrovic/storefront/internal/orders/ports"
)

// OrderHandler exposes HTTP endpoints for checkout and order lifecycle.
type OrderHandler struct {
	service *ordersapp.Service
}

func NewOrderHandler(service *ordersapp.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) Register(r chi.Router) {
	r.Post("/orders", h.checkout)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}/cancel", h.cancelOrder)
}

// checkout freezes the cart into an order. The Idempotency-Key header makes
// retries replay the first response instead of creating a second order.
func (h *OrderHandler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := auth.UserID(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		writeError(w, http.StatusBadRequest, "Idempotency-Key header required")
		return
	}
	// Scope the key to the user so two users cannot collide.
	idemKey = userID + ":" + idemKey

	// Claim the key before checkout runs so two overlapping requests with
	// the same key cannot both create an order. The loser replays the
	// stored response, or reports the first request as still in flight.
	claimed, err := h.service.ClaimIdempotencyKey(ctx, idemKey)
	if err != nil {
		respondError(w, err)
		return
	}
	if !claimed {
		stored, err := h.service.GetIdempotentResponse(ctx, idemKey)
		if err != nil {
			respondError(w, err)
			return
		}
		if stored != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
		respondError(w, ports.ErrRequestInFlight)
		return
	}

	order, err := h.service.Checkout(ctx, userID)
	if err != nil {
		if releaseErr := h.service.ReleaseIdempotencyKey(ctx, idemKey); releaseErr != nil {
			slog.ErrorContext(ctx, "failed to release idempotency key",
				"error", releaseErr, "key", idemKey)
		}
		respondError(w, err)
		return
	}

	body, err := json.Marshal(map[string]any{"order": order})
	if err != nil {
		respondError(w, err)
		return
	}

	stored := ports.StoredResponse{
		StatusCode: http.StatusCreated,
		Body:       body,
		OrderID:    order.ID,
	}

	if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	order, err := h.service.GetOrder(r.Context(), userID, chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	filter := ports.ListFilter{}
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := domain.OrderStatus(statusParam)
		filter.Status = &status
	}
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		if page, err := strconv.Atoi(pageParam); err == nil {
			filter.Page = page
		}
	}
	if pageSizeParam := r.URL.Query().Get("page_size"); pageSizeParam != "" {
		if pageSize, err := strconv.Atoi(pageSizeParam); err == nil {
			filter.PageSize = pageSize
		}
	}

	orders, err := h.service.ListOrders(r.Context(), userID, filter)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	order, err := h.service.CancelOrder(r.Context(), userID, chi.URLParam(r, "orderID"))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}
