package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	cartdomain "github.com/fjod/storefront/internal/cart/domain"
	checkout "github.com/fjod/storefront/internal/checkout/service"
	"github.com/fjod/storefront/internal/checkout/shipping"
	orders "github.com/fjod/storefront/internal/orders/repository"
	"github.com/fjod/storefront/pkg/logger"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L().Error("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts service errors to HTTP status codes. Only
// messages meant for the shopper are passed through; anything unexpected is
// logged and reported as an internal error.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var httpStatus int
	var code string
	message := err.Error()

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		httpStatus, code = http.StatusBadRequest, "empty_cart"
		message = checkout.ErrEmptyCart.Error()
	case errors.Is(err, checkout.ErrUnsupportedPaymentMethod):
		httpStatus, code = http.StatusBadRequest, "unsupported_payment_method"
	case errors.Is(err, shipping.ErrShippingResolution):
		httpStatus, code = http.StatusBadRequest, "shipping_unresolved"
	case errors.Is(err, checkout.ErrCheckout):
		// CheckoutError carries the generic message; the cause was logged.
		httpStatus, code = http.StatusBadGateway, "checkout_failed"
	case errors.Is(err, cartdomain.ErrInvalidQuantity), errors.Is(err, cartdomain.ErrInvalidDiscount):
		httpStatus, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, cartdomain.ErrLineNotFound), errors.Is(err, orders.ErrOrderNotFound):
		httpStatus, code = http.StatusNotFound, "not_found"
	case errors.Is(err, checkout.ErrPaymentAlreadySettled):
		httpStatus, code = http.StatusConflict, "already_settled"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code = http.StatusGatewayTimeout, "timeout"
		message = "request timed out"
	default:
		logger.FromContext(r.Context()).Error("unhandled service error",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		httpStatus, code = http.StatusInternalServerError, "internal_error"
		message = "internal server error"
	}

	respondError(w, httpStatus, code, message)
}
