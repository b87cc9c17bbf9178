package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/checkout/domain"
	"github.com/fjod/storefront/internal/checkout/gateway"
	"github.com/fjod/storefront/internal/checkout/shipping"
	orders "github.com/fjod/storefront/internal/orders/domain"
	"github.com/fjod/storefront/pkg/circuitbreaker"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/fjod/storefront/pkg/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Config struct {
	// Currency is the ISO code, upper case. The gateway receives it lower case.
	Currency             string
	Exponent             int32
	Country              string
	TaxRate              float64
	PublicBaseURL        string
	MadaCheckoutURL      string
	TabbyCheckoutURL     string
	TamaraCheckoutURL    string
	ApplePayMerchantID   string
	ApplePayMerchantName string
	GatewayTimeout       time.Duration
	AllowCardFallback    bool
}

func DefaultConfig() Config {
	return Config{
		Currency:             "SAR",
		Exponent:             2,
		Country:              "SA",
		TaxRate:              pricing.DefaultTaxRate,
		PublicBaseURL:        "http://localhost:3000",
		MadaCheckoutURL:      "http://localhost:3000/checkout/mada",
		TabbyCheckoutURL:     "http://localhost:3000/checkout/tabby",
		TamaraCheckoutURL:    "http://localhost:3000/checkout/tamara",
		ApplePayMerchantID:   "merchant.com.storefront",
		ApplePayMerchantName: "Storefront",
		GatewayTimeout:       15 * time.Second,
		AllowCardFallback:    true,
	}
}

// OrderStore persists orders created on the mada and cash-on-delivery paths.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *orders.Order) error
	GetOrderByReference(ctx context.Context, reference string) (*orders.Order, error)
	// UpdatePaymentStatus must refuse orders already paid or failed with
	// orders.ErrPaymentSettled, atomically with the write.
	UpdatePaymentStatus(ctx context.Context, reference string, payment orders.PaymentStatus, status orders.OrderStatus) (*orders.Order, error)
}

// SessionView is a hosted session as reported back to the success page.
type SessionView struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"paymentStatus"`
	AmountTotal   float64 `json:"amountTotal"`
	Currency      string  `json:"currency"`
	CustomerEmail string  `json:"customerEmail,omitempty"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
}

type CheckoutService struct {
	cfg      Config
	orders   OrderStore
	gateway  gateway.Gateway
	shipping *shipping.Resolver
	breaker  *circuitbreaker.Breaker[*gateway.Session]
	now      func() time.Time
}

func NewCheckoutService(cfg Config, orderStore OrderStore, gw gateway.Gateway, resolver *shipping.Resolver) *CheckoutService {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 15 * time.Second
	}
	if cfg.TaxRate == 0 {
		cfg.TaxRate = pricing.DefaultTaxRate
	}
	return &CheckoutService{
		cfg:      cfg,
		orders:   orderStore,
		gateway:  gw,
		shipping: resolver,
		breaker:  circuitbreaker.New[*gateway.Session](circuitbreaker.Settings{Name: "payment-gateway"}),
		now:      time.Now,
	}
}

// checkout is the validated, priced request every branch works from.
type checkout struct {
	req    *domain.CheckoutRequest
	method domain.PaymentMethod
	// requested is the method name recorded for reconciliation: the canonical
	// name for known methods, the submitted identifier for card fallbacks.
	requested string
	lines     []gateway.LineItem
	items     []domain.LineItem
	totals    pricing.Totals
	quotes    [2]shipping.Quote
}

// CheckoutPreview is the order summary for a checkout request, priced exactly
// as Checkout charges it.
type CheckoutPreview struct {
	PaymentMethod   string
	Currency        string
	Totals          pricing.Totals
	ShippingOptions []shipping.Quote
}

// Checkout validates the request, prices it once, and dispatches it to the
// path for its payment method. Failures on the external paths are
// *CheckoutError; nothing is retried.
func (s *CheckoutService) Checkout(ctx context.Context, req *domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	c, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	var res *domain.CheckoutResult
	var branch string
	switch c.method {
	case domain.PaymentMethodMada:
		branch = "mada-redirect"
		res, err = s.checkoutMada(ctx, c)
	case domain.PaymentMethodApplePay:
		branch = "wallet-sheet"
		res = s.checkoutApplePay(c)
	case domain.PaymentMethodTabby:
		branch = "bnpl-redirect"
		res, err = s.checkoutBNPL(c, s.cfg.TabbyCheckoutURL)
	case domain.PaymentMethodTamara:
		branch = "bnpl-redirect"
		res, err = s.checkoutBNPL(c, s.cfg.TamaraCheckoutURL)
	case domain.PaymentMethodCOD:
		branch = "cash-on-delivery"
		res, err = s.checkoutCOD(ctx, c)
	case domain.PaymentMethodCard:
		branch = "hosted-session"
		res, err = s.checkoutHosted(ctx, c)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPaymentMethod, c.method)
	}

	if err != nil {
		cerr := &CheckoutError{Method: c.requested, Branch: branch, Err: err}
		logger.FromContext(ctx).Error("checkout failed",
			zap.String("payment_method", cerr.Method),
			zap.String("branch", branch),
			zap.Float64("total", c.totals.Total),
			zap.Error(err))
		return nil, cerr
	}

	logger.FromContext(ctx).Info("checkout started",
		zap.String("payment_method", c.requested),
		zap.String("result", string(res.Kind)),
		zap.Float64("total", c.totals.Total))
	return res, nil
}

// Preview prices a checkout request without starting a payment, so the
// order summary shows the same totals the chosen path will charge.
func (s *CheckoutService) Preview(_ context.Context, req *domain.CheckoutRequest) (*CheckoutPreview, error) {
	c, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return &CheckoutPreview{
		PaymentMethod:   c.requested,
		Currency:        s.cfg.Currency,
		Totals:          c.totals,
		ShippingOptions: c.quotes[:],
	}, nil
}

func (s *CheckoutService) prepare(req *domain.CheckoutRequest) (*checkout, error) {
	if req == nil {
		return nil, ErrEmptyCart
	}
	lines := gateway.BuildLineItems(req.CartItems, s.gatewayCurrency(), s.cfg.Exponent)
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	method, known := domain.ParsePaymentMethod(req.PaymentMethod)
	requested := method.String()
	if !known {
		if !s.cfg.AllowCardFallback {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedPaymentMethod, req.PaymentMethod)
		}
		requested = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	}

	items := make([]domain.LineItem, 0, len(lines))
	priced := make([]pricing.Line, 0, len(lines))
	for _, item := range req.CartItems {
		if !item.Valid() {
			continue
		}
		items = append(items, item)
		priced = append(priced, pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity})
	}

	standard, express, err := s.shipping.Options(req.ShippingAddress.City, req.ShippingProvider)
	if err != nil {
		return nil, err
	}

	subtotal := pricing.Subtotal(priced)
	discount := clampDiscount(req.Discount, subtotal)

	return &checkout{
		req:       req,
		method:    method,
		requested: requested,
		lines:     lines,
		items:     items,
		totals:    pricing.ComputeTotals(subtotal, standard.Amount, discount, s.cfg.TaxRate),
		quotes:    [2]shipping.Quote{standard, express},
	}, nil
}

func clampDiscount(discount, subtotal float64) float64 {
	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}

func (s *CheckoutService) checkoutMada(ctx context.Context, c *checkout) (*domain.CheckoutResult, error) {
	order, err := s.newOrder(c, orders.PaymentStatusAwaitingPayment)
	if err != nil {
		return nil, err
	}
	u, err := withQuery(s.cfg.MadaCheckoutURL, url.Values{
		"order":  {order.Reference},
		"amount": {formatAmount(c.totals.Total)},
	})
	if err != nil {
		return nil, err
	}
	if err := s.createOrder(ctx, order); err != nil {
		return nil, err
	}
	return domain.Redirect(u), nil
}

func (s *CheckoutService) checkoutApplePay(c *checkout) *domain.CheckoutResult {
	return domain.WalletSheet(domain.WalletConfig{
		Provider:           c.method.String(),
		Amount:             c.totals.Total,
		MerchantIdentifier: s.cfg.ApplePayMerchantID,
		MerchantName:       s.cfg.ApplePayMerchantName,
		CountryCode:        s.cfg.Country,
		CurrencyCode:       s.cfg.Currency,
	})
}

// checkoutBNPL redirects to the installment provider. No order is recorded
// until the provider reports back.
func (s *CheckoutService) checkoutBNPL(c *checkout, entryURL string) (*domain.CheckoutResult, error) {
	ref, err := NewOrderReference(s.now())
	if err != nil {
		return nil, err
	}
	u, err := withQuery(entryURL, url.Values{
		"order":       {ref},
		"amount":      {formatAmount(c.totals.Total)},
		"currency":    {s.cfg.Currency},
		"success_url": {s.successURL(ref)},
		"cancel_url":  {s.cancelURL()},
	})
	if err != nil {
		return nil, err
	}
	return domain.Redirect(u), nil
}

func (s *CheckoutService) checkoutCOD(ctx context.Context, c *checkout) (*domain.CheckoutResult, error) {
	order, err := s.newOrder(c, orders.PaymentStatusCODPending)
	if err != nil {
		return nil, err
	}
	if err := s.createOrder(ctx, order); err != nil {
		return nil, err
	}
	return domain.OrderCreated(order.Reference), nil
}

func (s *CheckoutService) checkoutHosted(ctx context.Context, c *checkout) (*domain.CheckoutResult, error) {
	req := s.sessionRequest(c)

	tctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	sess, err := s.breaker.Execute(func() (*gateway.Session, error) {
		return s.gateway.CreateSession(tctx, req)
	})
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.URL == "" {
		return nil, errors.New("gateway returned a session without a URL")
	}
	return domain.Redirect(sess.URL), nil
}

func (s *CheckoutService) sessionRequest(c *checkout) gateway.SessionRequest {
	currency := s.gatewayCurrency()
	lines := c.lines
	if c.totals.Tax > 0 {
		lines = append(lines[:len(lines):len(lines)], gateway.LineItem{
			Name:        "VAT",
			Description: fmt.Sprintf("Value added tax %g%%", pricing.Round2(s.cfg.TaxRate*100)),
			Images:      []string{},
			UnitAmount:  pricing.ToMinorUnits(c.totals.Tax, s.cfg.Exponent),
			Quantity:    1,
			Currency:    currency,
		})
	}

	options := make([]gateway.ShippingOption, 0, len(c.quotes))
	for _, q := range c.quotes {
		options = append(options, gateway.ShippingOption{
			DisplayName:     q.Name,
			Amount:          pricing.ToMinorUnits(q.Amount, s.cfg.Exponent),
			Currency:        currency,
			MinBusinessDays: int64(q.MinDays),
			MaxBusinessDays: int64(q.MaxDays),
		})
	}

	var discount *gateway.Discount
	if c.totals.Discount > 0 {
		discount = &gateway.Discount{
			Name:     "Order discount",
			Amount:   pricing.ToMinorUnits(c.totals.Discount, s.cfg.Exponent),
			Currency: currency,
		}
	}

	method := c.requested
	return gateway.SessionRequest{
		LineItems:        lines,
		Discount:         discount,
		ShippingOptions:  options,
		AllowedCountries: []string{s.cfg.Country},
		SuccessURL:       strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/checkout/success?session_id=" + gateway.SessionIDPlaceholder,
		CancelURL:        s.cancelURL(),
		CustomerEmail:    c.req.ShippingAddress.Email,
		Metadata: map[string]string{
			"payment_method": method,
			"order_subtotal": formatAmount(c.totals.Subtotal),
			"order_discount": formatAmount(c.totals.Discount),
			"order_tax":      formatAmount(c.totals.Tax),
		},
		PaymentIntentMetadata: map[string]string{"payment_method": method},
	}
}

func (s *CheckoutService) newOrder(c *checkout, payment orders.PaymentStatus) (*orders.Order, error) {
	ref, err := NewOrderReference(s.now())
	if err != nil {
		return nil, err
	}
	items := make([]orders.OrderItem, 0, len(c.items))
	for _, item := range c.items {
		items = append(items, orders.OrderItem{
			ProductID: item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
		})
	}
	addr := c.req.ShippingAddress
	return &orders.Order{
		ID:            uuid.New(),
		Reference:     ref,
		CartID:        c.req.CartID,
		PaymentMethod: c.method.String(),
		Status:        orders.OrderStatusPending,
		PaymentStatus: payment,
		Items:         items,
		ShippingAddress: orders.ShippingAddress{
			Name:       addr.Name,
			Address:    addr.Address,
			City:       addr.City,
			PostalCode: addr.PostalCode,
			Phone:      addr.Phone,
			Email:      addr.Email,
		},
		Subtotal: c.totals.Subtotal,
		Shipping: c.totals.Shipping,
		Tax:      c.totals.Tax,
		Discount: c.totals.Discount,
		Total:    c.totals.Total,
		Currency: s.cfg.Currency,
	}, nil
}

func (s *CheckoutService) createOrder(ctx context.Context, order *orders.Order) error {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	if err := s.orders.CreateOrder(tctx, order); err != nil {
		return fmt.Errorf("create order %s: %w", order.Reference, err)
	}
	return nil
}

// GetSession reads back a hosted session for the success page.
func (s *CheckoutService) GetSession(ctx context.Context, sessionID string) (*SessionView, error) {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	details, err := s.gateway.GetSession(tctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to read checkout session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, &CheckoutError{Method: domain.PaymentMethodCard.String(), Branch: "session-lookup", Err: err}
	}
	return &SessionView{
		ID:            details.ID,
		Status:        details.Status,
		PaymentStatus: details.PaymentStatus,
		AmountTotal:   pricing.FromMinorUnits(details.AmountTotal, s.cfg.Exponent),
		Currency:      strings.ToUpper(details.Currency),
		CustomerEmail: details.CustomerEmail,
		PaymentMethod: details.Metadata["payment_method"],
	}, nil
}

// GetOrder returns an order created on the mada or cash-on-delivery path.
func (s *CheckoutService) GetOrder(ctx context.Context, reference string) (*orders.Order, error) {
	return s.orders.GetOrderByReference(ctx, reference)
}

// UpdatePayment records the provider's verdict on an awaiting order. Settled
// orders cannot change again; the store enforces that atomically and reports
// ErrPaymentAlreadySettled.
func (s *CheckoutService) UpdatePayment(ctx context.Context, reference string, paid bool) (*orders.Order, error) {
	payment, status := orders.PaymentStatusFailed, orders.OrderStatusCancelled
	if paid {
		payment, status = orders.PaymentStatusPaid, orders.OrderStatusConfirmed
	}
	updated, err := s.orders.UpdatePaymentStatus(ctx, reference, payment, status)
	if err != nil {
		if errors.Is(err, ErrPaymentAlreadySettled) {
			logger.FromContext(ctx).Warn("payment update for settled order",
				zap.String("order_reference", reference),
				zap.String("payment_status", string(payment)))
		}
		return nil, err
	}
	logger.FromContext(ctx).Info("order payment updated",
		zap.String("order_reference", reference),
		zap.String("payment_status", string(payment)))
	return updated, nil
}

// QuoteShipping exposes the resolver for the checkout form preview.
func (s *CheckoutService) QuoteShipping(city, provider string) (float64, error) {
	return s.shipping.Resolve(city, provider)
}

func (s *CheckoutService) gatewayCurrency() string {
	return strings.ToLower(s.cfg.Currency)
}

func (s *CheckoutService) successURL(reference string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/checkout/success?order=" + url.QueryEscape(reference)
}

func (s *CheckoutService) cancelURL() string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/checkout"
}

func withQuery(base string, values url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse checkout url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("checkout url %q is not absolute", base)
	}
	q := u.Query()
	for k, v := range values {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func formatAmount(amount float64) string {
	return pricing.Format(amount)
}
