package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/checkout/domain"
	checkout "github.com/fjod/storefront/internal/checkout/service"
	orders "github.com/fjod/storefront/internal/orders/domain"
	"github.com/go-chi/chi/v5"
)

// CheckoutService is the subset of the checkout router the handlers call.
type CheckoutService interface {
	Checkout(ctx context.Context, req *domain.CheckoutRequest) (*domain.CheckoutResult, error)
	Preview(ctx context.Context, req *domain.CheckoutRequest) (*checkout.CheckoutPreview, error)
	GetSession(ctx context.Context, sessionID string) (*checkout.SessionView, error)
	GetOrder(ctx context.Context, reference string) (*orders.Order, error)
	UpdatePayment(ctx context.Context, reference string, paid bool) (*orders.Order, error)
	QuoteShipping(city, provider string) (float64, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(svc CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: svc,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	CartItems        []domain.LineItem      `json:"cartItems"`
	ShippingAddress  domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod    string                 `json:"paymentMethod"`
	ShippingProvider string                 `json:"shippingProvider,omitempty"`
	CartID           string                 `json:"cartId,omitempty"`
	Discount         float64                `json:"discount,omitempty"`
}

func (d CheckoutRequestDTO) toDomain() *domain.CheckoutRequest {
	return &domain.CheckoutRequest{
		CartItems:        d.CartItems,
		ShippingAddress:  d.ShippingAddress,
		PaymentMethod:    d.PaymentMethod,
		ShippingProvider: d.ShippingProvider,
		CartID:           d.CartID,
		Discount:         d.Discount,
	}
}

type RedirectResponseDTO struct {
	URL string `json:"url"`
}

type WalletResponseDTO struct {
	Status string `json:"status"`
	*domain.WalletConfig
}

type OrderCreatedResponseDTO struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
	Message string `json:"message"`
}

// POST /api/checkout
func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := h.checkout.Checkout(ctx, req.toDomain())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	switch res.Kind {
	case domain.ResultRedirect:
		respondJSON(w, http.StatusOK, RedirectResponseDTO{URL: res.URL})
	case domain.ResultWalletSheet:
		respondJSON(w, http.StatusOK, WalletResponseDTO{Status: "ready", WalletConfig: res.Wallet})
	case domain.ResultOrderCreated:
		respondJSON(w, http.StatusOK, OrderCreatedResponseDTO{
			Success: true,
			OrderID: res.OrderReference,
			Message: "Order placed successfully, payment will be collected on delivery",
		})
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

type ShippingOptionDTO struct {
	Provider string  `json:"provider"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	MinDays  int     `json:"minDays"`
	MaxDays  int     `json:"maxDays"`
}

// CheckoutPreviewDTO is the order summary shown before the shopper pays.
type CheckoutPreviewDTO struct {
	PaymentMethod   string              `json:"paymentMethod"`
	Currency        string              `json:"currency"`
	Subtotal        float64             `json:"subtotal"`
	Shipping        float64             `json:"shipping"`
	Discount        float64             `json:"discount"`
	Tax             float64             `json:"tax"`
	Total           float64             `json:"total"`
	ShippingOptions []ShippingOptionDTO `json:"shippingOptions"`
}

// POST /api/checkout/preview
func (h *CheckoutHandler) PreviewCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	preview, err := h.checkout.Preview(ctx, req.toDomain())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	options := make([]ShippingOptionDTO, 0, len(preview.ShippingOptions))
	for _, q := range preview.ShippingOptions {
		options = append(options, ShippingOptionDTO{
			Provider: q.Provider,
			Name:     q.Name,
			Amount:   q.Amount,
			MinDays:  q.MinDays,
			MaxDays:  q.MaxDays,
		})
	}
	respondJSON(w, http.StatusOK, CheckoutPreviewDTO{
		PaymentMethod:   preview.PaymentMethod,
		Currency:        preview.Currency,
		Subtotal:        preview.Totals.Subtotal,
		Shipping:        preview.Totals.Shipping,
		Discount:        preview.Totals.Discount,
		Tax:             preview.Totals.Tax,
		Total:           preview.Totals.Total,
		ShippingOptions: options,
	})
}

// GET /api/checkout/session/{session_id}
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := chi.URLParam(r, "session_id")
	if strings.TrimSpace(sessionID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "session_id is required")
		return
	}

	view, err := h.checkout.GetSession(ctx, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type ShippingQuoteDTO struct {
	City     string  `json:"city"`
	Provider string  `json:"provider,omitempty"`
	Amount   float64 `json:"amount"`
}

// GET /api/shipping/quote?city=&provider=
func (h *CheckoutHandler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")
	provider := r.URL.Query().Get("provider")

	amount, err := h.checkout.QuoteShipping(city, provider)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ShippingQuoteDTO{City: city, Provider: provider, Amount: amount})
}
