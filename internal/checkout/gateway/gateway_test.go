package gateway

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/checkout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLineItems(t *testing.T) {
	items := []domain.LineItem{
		{ID: "1", Name: "Abaya", Price: 100, Quantity: 2, Images: []string{"https://cdn/a.jpg"}, Description: "Black crepe"},
		{ID: "2", Name: "Scarf", Price: 250, Quantity: 1},
	}

	got := BuildLineItems(items, "sar", 2)

	require.Len(t, got, 2)
	assert.Equal(t, int64(10000), got[0].UnitAmount)
	assert.Equal(t, int64(2), got[0].Quantity)
	assert.Equal(t, "sar", got[0].Currency)
	assert.Equal(t, "Black crepe", got[0].Description)
	assert.Equal(t, []string{"https://cdn/a.jpg"}, got[0].Images)

	assert.Equal(t, int64(25000), got[1].UnitAmount)
	assert.Equal(t, int64(1), got[1].Quantity)
	assert.NotNil(t, got[1].Images)
	assert.Empty(t, got[1].Images)
}

func TestBuildLineItems_FiltersMalformed(t *testing.T) {
	items := []domain.LineItem{
		{ID: "1", Name: "Free sample", Price: 0, Quantity: 1},
		{ID: "2", Name: "Abaya", Price: 99.99, Quantity: 0},
		{ID: "3", Name: "", Price: 10, Quantity: 1},
		{ID: "4", Name: "Belt", Price: 19.995, Quantity: 3},
	}

	got := BuildLineItems(items, "sar", 2)

	require.Len(t, got, 1)
	assert.Equal(t, "Belt", got[0].Name)
	assert.Equal(t, int64(2000), got[0].UnitAmount)
}

func TestBuildLineItems_AllMalformedIsEmpty(t *testing.T) {
	got := BuildLineItems([]domain.LineItem{{Name: "x", Price: -1, Quantity: 1}}, "sar", 2)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestToStripeParams(t *testing.T) {
	req := SessionRequest{
		LineItems: []LineItem{
			{Name: "Abaya", Description: "Black", Images: []string{"a.jpg"}, UnitAmount: 10000, Quantity: 2, Currency: "sar"},
			{Name: "Scarf", Images: []string{}, UnitAmount: 25000, Quantity: 1, Currency: "sar"},
		},
		ShippingOptions: []ShippingOption{
			{DisplayName: "Standard Shipping", Amount: 2500, Currency: "sar", MinBusinessDays: 3, MaxBusinessDays: 5},
			{DisplayName: "Express Shipping", Amount: 3500, Currency: "sar", MinBusinessDays: 1, MaxBusinessDays: 2},
		},
		AllowedCountries:      []string{"SA"},
		SuccessURL:            "https://shop.example/checkout/success?session_id=" + SessionIDPlaceholder,
		CancelURL:             "https://shop.example/checkout",
		CustomerEmail:         "noura@example.com",
		Metadata:              map[string]string{"payment_method": "card"},
		PaymentIntentMetadata: map[string]string{"payment_method": "card"},
	}

	params := toStripeParams(req, "")

	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, req.SuccessURL, *params.SuccessURL)
	assert.Equal(t, req.CancelURL, *params.CancelURL)
	assert.Equal(t, "noura@example.com", *params.CustomerEmail)

	require.Len(t, params.LineItems, 2)
	assert.Equal(t, int64(10000), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(2), *params.LineItems[0].Quantity)
	assert.Equal(t, "sar", *params.LineItems[0].PriceData.Currency)
	assert.Equal(t, "Abaya", *params.LineItems[0].PriceData.ProductData.Name)
	assert.Equal(t, "Black", *params.LineItems[0].PriceData.ProductData.Description)
	assert.Nil(t, params.LineItems[1].PriceData.ProductData.Description)

	require.Len(t, params.ShippingOptions, 2)
	std := params.ShippingOptions[0].ShippingRateData
	assert.Equal(t, "fixed_amount", *std.Type)
	assert.Equal(t, int64(2500), *std.FixedAmount.Amount)
	assert.Equal(t, int64(3), *std.DeliveryEstimate.Minimum.Value)
	assert.Equal(t, int64(5), *std.DeliveryEstimate.Maximum.Value)
	assert.Equal(t, "business_day", *std.DeliveryEstimate.Minimum.Unit)
	exp := params.ShippingOptions[1].ShippingRateData
	assert.Equal(t, int64(1), *exp.DeliveryEstimate.Minimum.Value)
	assert.Equal(t, int64(2), *exp.DeliveryEstimate.Maximum.Value)

	require.Len(t, params.ShippingAddressCollection.AllowedCountries, 1)
	assert.Equal(t, "SA", *params.ShippingAddressCollection.AllowedCountries[0])

	assert.Equal(t, "automatic", *params.PaymentIntentData.CaptureMethod)
	assert.Equal(t, "card", params.PaymentIntentData.Metadata["payment_method"])
	assert.Equal(t, "card", params.Metadata["payment_method"])
	assert.Empty(t, params.Discounts)
}

func TestToStripeParams_DiscountKeepsLines(t *testing.T) {
	req := SessionRequest{
		LineItems: []LineItem{
			{Name: "Abaya", Images: []string{}, UnitAmount: 10000, Quantity: 2, Currency: "sar"},
			{Name: "Scarf", Images: []string{}, UnitAmount: 25000, Quantity: 1, Currency: "sar"},
		},
		Discount: &Discount{Name: "Order discount", Amount: 5000, Currency: "sar"},
	}

	params := toStripeParams(req, "co_123")

	require.Len(t, params.LineItems, 2)
	assert.Equal(t, int64(10000), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(25000), *params.LineItems[1].PriceData.UnitAmount)
	require.Len(t, params.Discounts, 1)
	assert.Equal(t, "co_123", *params.Discounts[0].Coupon)
}

func TestToCouponParams(t *testing.T) {
	params := toCouponParams(context.Background(), Discount{Name: "Order discount", Amount: 5000, Currency: "sar"})

	assert.Equal(t, int64(5000), *params.AmountOff)
	assert.Equal(t, "sar", *params.Currency)
	assert.Equal(t, "once", *params.Duration)
	assert.Equal(t, int64(1), *params.MaxRedemptions)
	assert.Equal(t, "Order discount", *params.Name)
	assert.NotNil(t, params.Context)
}
