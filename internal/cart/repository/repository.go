package repository

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/cart/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository is the durable home of cart snapshots.
type CartRepository interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, cartID string) error
}
