package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mpetrovic/storefront/internal/auth"
	cartapp "github.com/mpetrovic/storefront/internal/cart/app"
)

// CartHandler exposes HTTP endpoints for cart operations. Every mutation
// responds with the server-confirmed cart state, never an echo of the input.
type CartHandler struct {
	service *cartapp.Service
}

func NewCartHandler(service *cartapp.Service) *CartHandler {
	return &CartHandler{service: service}
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.viewCart)
	r.Delete("/cart", h.clearCart)
	r.Post("/cart/items", h.addItem)
	r.Patch("/cart/items/{productID}", h.updateQuantity)
	r.Delete("/cart/items/{productID}", h.removeItem)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	Change int `json:"change"`
}

func (h *CartHandler) viewCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	view, err := h.service.View(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cart": view})
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.service.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cart": cart})
}

func (h *CartHandler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "productID")

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), userID, productID, req.Change)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cart": cart})
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "productID")

	cart, err := h.service.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cart": cart})
}

func (h *CartHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	if err := h.service.Clear(r.Context(), userID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
