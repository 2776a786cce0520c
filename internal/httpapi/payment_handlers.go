package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mpetrovic/storefront/internal/auth"
	paymentsapp "github.com/mpetrovic/storefront/internal/payments/app"
)

// PaymentHandler exposes the payment handshake: checkout opens a gateway
// session, verify settles the callback.
type PaymentHandler struct {
	service *paymentsapp.Service
}

func NewPaymentHandler(service *paymentsapp.Service) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(r chi.Router) {
	r.Post("/payments/checkout", h.initiate)
	r.Post("/payments/verify", h.verify)
}

type initiateRequest struct {
	OrderID string `json:"order_id"`
}

func (h *PaymentHandler) initiate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	result, err := h.service.Initiate(r.Context(), userID, req.OrderID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"payment": result})
}

func (h *PaymentHandler) verify(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserID(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var input paymentsapp.VerifyInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := input.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Verify(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payment": result})
}
