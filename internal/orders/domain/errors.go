package domain

import "errors"

// ErrPaymentSettled is returned when a payment update targets an order whose
// payment status is already paid or failed.
var ErrPaymentSettled = errors.New("order payment is already settled")
