package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/cart/domain"
	"github.com/fjod/storefront/internal/cart/store"
	"github.com/go-chi/chi/v5"
)

// CartOpener hands out a store seeded with the persisted cart.
type CartOpener interface {
	Open(ctx context.Context, cartID string) (*store.Store, error)
}

type CartHandler struct {
	carts   CartOpener
	timeout time.Duration
}

func NewCartHandler(carts CartOpener, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
	Size     string         `json:"size,omitempty"`
	Color    string         `json:"color,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type DiscountRequestDTO struct {
	Amount float64 `json:"amount"`
}

// GET /api/v1/cart/{cart_id}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.withStore(w, r, http.StatusOK, func(ctx context.Context, s *store.Store) (*domain.Cart, error) {
		return s.Snapshot(), nil
	})
}

// POST /api/v1/cart/{cart_id}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Product.ID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product.id is required")
		return
	}
	if req.Product.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "product.price must not be negative")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	h.withStore(w, r, http.StatusCreated, func(ctx context.Context, s *store.Store) (*domain.Cart, error) {
		return s.AddItem(ctx, req.Product, req.Quantity, req.Size, req.Color)
	})
}

// PUT /api/v1/cart/{cart_id}/items/{index}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	index, ok := lineIndex(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	h.withStore(w, r, http.StatusOK, func(ctx context.Context, s *store.Store) (*domain.Cart, error) {
		return s.UpdateQuantity(ctx, index, req.Quantity)
	})
}

// DELETE /api/v1/cart/{cart_id}/items/{index}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	index, ok := lineIndex(w, r)
	if !ok {
		return
	}

	h.withStore(w, r, http.StatusOK, func(ctx context.Context, s *store.Store) (*domain.Cart, error) {
		return s.RemoveItem(ctx, index)
	})
}

// PUT /api/v1/cart/{cart_id}/discount
func (h *CartHandler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	var req DiscountRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.withStore(w, r, http.StatusOK, func(ctx context.Context, s *store.Store) (*domain.Cart, error) {
		return s.SetDiscount(ctx, req.Amount)
	})
}

// DELETE /api/v1/cart/{cart_id}
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.withStore(w, r, http.StatusOK, func(ctx context.Context, s *store.Store) (*domain.Cart, error) {
		return s.Clear(ctx)
	})
}

func (h *CartHandler) withStore(w http.ResponseWriter, r *http.Request, status int, fn func(ctx context.Context, s *store.Store) (*domain.Cart, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID := chi.URLParam(r, "cart_id")
	if strings.TrimSpace(cartID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_cart_id", "cart_id is required")
		return
	}

	s, err := h.carts.Open(ctx, cartID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	cart, err := fn(ctx, s)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, status, cart)
}

func lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must be a non-negative integer")
		return 0, false
	}
	return index, true
}
