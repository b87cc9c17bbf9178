package domain

import "errors"

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidDiscount = errors.New("discount must not be negative")
)
