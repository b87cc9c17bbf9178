package domain

import "strings"

// PaymentMethod is the closed set of checkout paths.
type PaymentMethod int

const (
	PaymentMethodCard PaymentMethod = iota
	PaymentMethodMada
	PaymentMethodApplePay
	PaymentMethodTabby
	PaymentMethodTamara
	PaymentMethodCOD
)

var methodNames = map[PaymentMethod]string{
	PaymentMethodCard:     "card",
	PaymentMethodMada:     "mada",
	PaymentMethodApplePay: "apple_pay",
	PaymentMethodTabby:    "tabby",
	PaymentMethodTamara:   "tamara",
	PaymentMethodCOD:      "cod",
}

// String representation (for logging and gateway metadata)
func (m PaymentMethod) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParsePaymentMethod maps the request identifier to a method. The empty
// string is the unspecified method and maps to card. known is false for
// identifiers outside the set.
func ParsePaymentMethod(raw string) (method PaymentMethod, known bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "card", "stripe":
		return PaymentMethodCard, true
	case "mada":
		return PaymentMethodMada, true
	case "apple_pay", "applepay":
		return PaymentMethodApplePay, true
	case "tabby":
		return PaymentMethodTabby, true
	case "tamara":
		return PaymentMethodTamara, true
	case "cod", "cash_on_delivery":
		return PaymentMethodCOD, true
	default:
		return PaymentMethodCard, false
	}
}
