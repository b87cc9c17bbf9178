package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	orders "github.com/fjod/storefront/internal/orders/domain"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	checkout CheckoutService
	timeout  time.Duration
}

func NewOrdersHandler(svc CheckoutService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		checkout: svc,
		timeout:  timeout,
	}
}

type OrderResponseDTO struct {
	Reference     string    `json:"reference"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	PaymentMethod string    `json:"paymentMethod"`
	Subtotal      float64   `json:"subtotal"`
	Shipping      float64   `json:"shipping"`
	Tax           float64   `json:"tax"`
	Discount      float64   `json:"discount"`
	Total         float64   `json:"total"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"createdAt"`
}

type PaymentUpdateRequestDTO struct {
	Status string `json:"status"`
}

func toOrderResponse(o *orders.Order) OrderResponseDTO {
	return OrderResponseDTO{
		Reference:     o.Reference,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: o.PaymentMethod,
		Subtotal:      o.Subtotal,
		Shipping:      o.Shipping,
		Tax:           o.Tax,
		Discount:      o.Discount,
		Total:         o.Total,
		Currency:      o.Currency,
		CreatedAt:     o.CreatedAt,
	}
}

// GET /api/orders/{reference}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.checkout.GetOrder(ctx, chi.URLParam(r, "reference"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// POST /api/orders/{reference}/payment, signed by the payment provider
func (h *OrdersHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PaymentUpdateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var paid bool
	switch orders.PaymentStatus(req.Status) {
	case orders.PaymentStatusPaid:
		paid = true
	case orders.PaymentStatusFailed:
		paid = false
	default:
		respondError(w, http.StatusBadRequest, "invalid_status", "status must be paid or failed")
		return
	}

	order, err := h.checkout.UpdatePayment(ctx, chi.URLParam(r, "reference"), paid)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}
