package service

import (
	"errors"
	"fmt"

	orders "github.com/fjod/storefront/internal/orders/domain"
)

var (
	ErrEmptyCart                = errors.New("cart is empty, nothing to checkout")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrPaymentAlreadySettled    = orders.ErrPaymentSettled
	// ErrCheckout matches every *CheckoutError via errors.Is.
	ErrCheckout = errors.New("checkout failed")
)

const checkoutFailedMessage = "could not start checkout, please try again"

// CheckoutError is an external failure on one of the payment paths. Its
// message is safe to show to the shopper; the cause is only for logs.
type CheckoutError struct {
	Method string
	Branch string
	Err    error
}

func (e *CheckoutError) Error() string {
	return checkoutFailedMessage
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

func (e *CheckoutError) Is(target error) bool {
	return target == ErrCheckout
}

// Cause is the full internal description, for logging.
func (e *CheckoutError) Cause() string {
	return fmt.Sprintf("%s checkout via %s: %v", e.Method, e.Branch, e.Err)
}
