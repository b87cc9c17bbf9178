package domain

// LineItem is a cart line as submitted with the checkout request.
type LineItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Quantity    int      `json:"quantity"`
	Images      []string `json:"images"`
	Description string   `json:"description,omitempty"`
	Size        string   `json:"size,omitempty"`
	Color       string   `json:"color,omitempty"`
}

// Valid reports whether the line can be charged.
func (l LineItem) Valid() bool {
	return l.Name != "" && l.Price > 0 && l.Quantity > 0
}

type ShippingAddress struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

type CheckoutRequest struct {
	CartItems       []LineItem
	ShippingAddress ShippingAddress
	// PaymentMethod is the identifier as submitted; see ParsePaymentMethod.
	PaymentMethod    string
	ShippingProvider string
	CartID           string
	Discount         float64
}

type ResultKind string

const (
	ResultRedirect     ResultKind = "redirect"
	ResultWalletSheet  ResultKind = "wallet-sheet"
	ResultOrderCreated ResultKind = "order-created"
)

// WalletConfig drives the client-side wallet payment sheet.
type WalletConfig struct {
	Provider           string  `json:"provider"`
	Amount             float64 `json:"amount"`
	MerchantIdentifier string  `json:"merchantIdentifier"`
	MerchantName       string  `json:"merchantName"`
	CountryCode        string  `json:"countryCode"`
	CurrencyCode       string  `json:"currencyCode"`
}

// CheckoutResult is exactly one of: redirect URL, wallet config, created order.
// Failures are returned as errors instead of a fourth kind.
type CheckoutResult struct {
	Kind           ResultKind
	URL            string
	Wallet         *WalletConfig
	OrderReference string
}

func Redirect(url string) *CheckoutResult {
	return &CheckoutResult{Kind: ResultRedirect, URL: url}
}

func WalletSheet(cfg WalletConfig) *CheckoutResult {
	return &CheckoutResult{Kind: ResultWalletSheet, Wallet: &cfg}
}

func OrderCreated(reference string) *CheckoutResult {
	return &CheckoutResult{Kind: ResultOrderCreated, OrderReference: reference}
}
