// Package gateway describes hosted checkout sessions and translates cart lines
// into the payment gateway's schema.
package gateway

import "context"

// SessionIDPlaceholder is substituted by the gateway with the real session id
// when it redirects back to the success URL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// LineItem is one purchasable line, amounts in minor units.
type LineItem struct {
	Name        string
	Description string
	Images      []string
	UnitAmount  int64
	Quantity    int64
	Currency    string
}

// ShippingOption is a selectable fixed-amount shipping rate.
type ShippingOption struct {
	DisplayName     string
	Amount          int64
	Currency        string
	MinBusinessDays int64
	MaxBusinessDays int64
}

// Discount is a fixed amount taken off the goods, in minor units. The line
// items keep their own prices.
type Discount struct {
	Name     string
	Amount   int64
	Currency string
}

// SessionRequest encapsulates everything needed to open a hosted checkout.
type SessionRequest struct {
	LineItems             []LineItem
	Discount              *Discount
	ShippingOptions       []ShippingOption
	AllowedCountries      []string
	SuccessURL            string
	CancelURL             string
	CustomerEmail         string
	Metadata              map[string]string
	PaymentIntentMetadata map[string]string
}

// Session is a created hosted checkout.
type Session struct {
	ID  string
	URL string
}

// SessionDetails is the state of an existing session, read back by the
// success page.
type SessionDetails struct {
	ID            string
	Status        string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	Metadata      map[string]string
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*SessionDetails, error)
}
