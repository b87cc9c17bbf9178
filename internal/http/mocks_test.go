package http

import (
	"context"
	"sync"

	cartdomain "github.com/fjod/storefront/internal/cart/domain"
	"github.com/fjod/storefront/internal/cart/store"
	"github.com/fjod/storefront/internal/checkout/domain"
	checkout "github.com/fjod/storefront/internal/checkout/service"
	orders "github.com/fjod/storefront/internal/orders/domain"
	r "github.com/fjod/storefront/internal/orders/repository"
)

// MockCheckoutService implements CheckoutService for testing
type MockCheckoutService struct {
	Result        *domain.CheckoutResult
	Err           error
	LastRequest   *domain.CheckoutRequest
	PreviewResult *checkout.CheckoutPreview
	Session       *checkout.SessionView
	Orders        map[string]*orders.Order
	UpdateErr     error
	Quote         float64
	QuoteErr      error
}

func (m *MockCheckoutService) Checkout(_ context.Context, req *domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	m.LastRequest = req
	return m.Result, m.Err
}

func (m *MockCheckoutService) Preview(_ context.Context, req *domain.CheckoutRequest) (*checkout.CheckoutPreview, error) {
	m.LastRequest = req
	return m.PreviewResult, m.Err
}

func (m *MockCheckoutService) GetSession(_ context.Context, _ string) (*checkout.SessionView, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Session, nil
}

func (m *MockCheckoutService) GetOrder(_ context.Context, reference string) (*orders.Order, error) {
	if o, ok := m.Orders[reference]; ok {
		return o, nil
	}
	return nil, r.ErrOrderNotFound
}

func (m *MockCheckoutService) UpdatePayment(_ context.Context, reference string, paid bool) (*orders.Order, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	o, ok := m.Orders[reference]
	if !ok {
		return nil, r.ErrOrderNotFound
	}
	if paid {
		o.PaymentStatus, o.Status = orders.PaymentStatusPaid, orders.OrderStatusConfirmed
	} else {
		o.PaymentStatus, o.Status = orders.PaymentStatusFailed, orders.OrderStatusCancelled
	}
	return o, nil
}

func (m *MockCheckoutService) QuoteShipping(_, _ string) (float64, error) {
	return m.Quote, m.QuoteErr
}

// memoryCarts implements CartOpener and store.Persister for testing
type memoryCarts struct {
	mu    sync.Mutex
	carts map[string]*cartdomain.Cart
}

func newMemoryCarts() *memoryCarts {
	return &memoryCarts{carts: map[string]*cartdomain.Cart{}}
}

func (m *memoryCarts) Open(_ context.Context, cartID string) (*store.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return store.New(cartID, m.carts[cartID], m, cartdomain.DefaultPolicy), nil
}

func (m *memoryCarts) Save(_ context.Context, c *cartdomain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.ID] = c.Clone()
	return nil
}

func (m *memoryCarts) Delete(_ context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, cartID)
	return nil
}
