// Package pricing holds the order total arithmetic shared by the cart preview
// and every checkout path.
package pricing

import (
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the VAT rate applied to (subtotal - discount).
const DefaultTaxRate = 0.15

// Totals is the breakdown displayed in the order summary and charged by the
// payment paths.
type Totals struct {
	Subtotal float64 `json:"subtotal" bson:"subtotal"`
	Shipping float64 `json:"shipping" bson:"shipping"`
	Discount float64 `json:"discount" bson:"discount"`
	Tax      float64 `json:"tax" bson:"tax"`
	Total    float64 `json:"total" bson:"total"`
}

// Line is the minimum a priced line needs to contribute to a subtotal.
type Line struct {
	UnitPrice float64
	Quantity  int
}

// ComputeTotals is the single place where tax and total are derived.
// tax = round2((subtotal - discount) * taxRate); shipping is never taxed.
func ComputeTotals(subtotal, shipping, discount, taxRate float64) Totals {
	sub := decimal.NewFromFloat(subtotal)
	ship := decimal.NewFromFloat(shipping)
	disc := decimal.NewFromFloat(discount)

	tax := sub.Sub(disc).Mul(decimal.NewFromFloat(taxRate)).Round(2)
	total := sub.Add(ship).Add(tax).Sub(disc).Round(2)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Discount: discount,
		Tax:      tax.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}

// Subtotal sums unit price times quantity over lines.
func Subtotal(lines []Line) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum.Round(2).InexactFloat64()
}

// Round2 rounds half away from zero to two decimal places.
func Round2(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// ToMinorUnits converts a major-unit amount to the integer minor units a
// gateway expects: round(amount * 10^exponent). Call it once, at the gateway
// boundary.
func ToMinorUnits(amount float64, exponent int32) int64 {
	return decimal.NewFromFloat(amount).Shift(exponent).Round(0).IntPart()
}

// FromMinorUnits converts gateway minor units back to a major-unit amount.
func FromMinorUnits(minor int64, exponent int32) float64 {
	return decimal.New(minor, -exponent).InexactFloat64()
}

// Format renders an amount with exactly two decimals, as sent to redirect
// providers and stored in gateway metadata.
func Format(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}
