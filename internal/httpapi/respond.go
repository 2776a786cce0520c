package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	cartapp "github.com/mpetrovic/storefront/internal/cart/app"
	cartdomain "github.com/mpetrovic/storefront/internal/cart/domain"
	cartports "github.com/mpetrovic/storefront/internal/cart/ports"
	"github.com/mpetrovic/storefront/internal/catalog"
	"github.com/mpetrovic/storefront/internal/inventory"
	"github.com/mpetrovic/storefront/internal/orders/app/commands"
	ordersdomain "github.com/mpetrovic/storefront/internal/orders/domain"
	ordersports "github.com/mpetrovic/storefront/internal/orders/ports"
	paymentsdomain "github.com/mpetrovic/storefront/internal/payments/domain"
	paymentsports "github.com/mpetrovic/storefront/internal/payments/ports"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// statusFor maps domain errors onto HTTP statuses. Unknown errors are 500;
// their details stay out of the response body.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, cartdomain.ErrQuantityTooLow):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, cartapp.ErrStockExhausted),
		errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict, err.Error()
	case errors.Is(err, cartports.ErrItemNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, ordersports.ErrNotFound),
		errors.Is(err, paymentsdomain.ErrSessionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, commands.ErrEmptyCart):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, commands.ErrStaleCatalog):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ordersdomain.ErrOrderNotPending),
		errors.Is(err, ordersdomain.ErrAlreadySettled),
		errors.Is(err, ordersports.ErrStatusConflict),
		errors.Is(err, ordersports.ErrRequestInFlight),
		errors.Is(err, paymentsports.ErrStatusConflict),
		errors.Is(err, paymentsdomain.ErrSessionActive):
		return http.StatusConflict, err.Error()
	case errors.Is(err, paymentsdomain.ErrSignatureMismatch):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, paymentsdomain.ErrSessionExpired):
		return http.StatusGone, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func respondError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	writeError(w, status, message)
}
