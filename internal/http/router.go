package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	// MaxRequestBodySize caps JSON bodies, in bytes.
	MaxRequestBodySize int64
	// PaymentCallbackSecret signs provider payment callbacks. The callback
	// route is not mounted without it.
	PaymentCallbackSecret string
	CallbackTolerance     time.Duration
}

// NewRouter mounts the storefront API.
func NewRouter(cfg RouterConfig, carts CartOpener, svc CheckoutService) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = 1 << 20 // 1MB
	}

	cartHandler := NewCartHandler(carts, cfg.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(svc, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(svc, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout", checkoutHandler.CreateCheckout)
		r.Post("/checkout/preview", checkoutHandler.PreviewCheckout)
		r.Get("/checkout/session/{session_id}", checkoutHandler.GetSession)
		r.Get("/shipping/quote", checkoutHandler.QuoteShipping)

		r.Route("/orders/{reference}", func(r chi.Router) {
			r.Get("/", ordersHandler.GetOrder)
			if cfg.PaymentCallbackSecret != "" {
				r.With(VerifySignature(cfg.PaymentCallbackSecret, cfg.CallbackTolerance)).
					Post("/payment", ordersHandler.UpdatePayment)
			}
		})

		r.Route("/v1/cart/{cart_id}", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{index}", cartHandler.UpdateQuantity)
			r.Delete("/items/{index}", cartHandler.RemoveItem)
			r.Put("/discount", cartHandler.SetDiscount)
		})
	})

	return r
}
