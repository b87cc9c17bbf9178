package gateway

import (
	"github.com/fjod/storefront/internal/checkout/domain"
	"github.com/fjod/storefront/pkg/pricing"
)

// BuildLineItems maps cart lines to gateway line items. Malformed lines are
// dropped rather than failing the checkout; an empty result is for the caller
// to reject.
func BuildLineItems(items []domain.LineItem, currency string, exponent int32) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if !item.Valid() {
			continue
		}
		images := item.Images
		if images == nil {
			images = []string{}
		}
		out = append(out, LineItem{
			Name:        item.Name,
			Description: item.Description,
			Images:      images,
			UnitAmount:  pricing.ToMinorUnits(item.Price, exponent),
			Quantity:    int64(item.Quantity),
			Currency:    currency,
		})
	}
	return out
}
