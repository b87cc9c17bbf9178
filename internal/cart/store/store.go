// Package store wraps a single cart behind its mutation methods and persists
// the result after each successful change.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/storefront/internal/cart/domain"
)

// Persister is the durable storage a store writes through to.
type Persister interface {
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, cartID string) error
}

type Store struct {
	mu        sync.Mutex
	cart      *domain.Cart
	persister Persister
}

// New builds a store from a persisted snapshot (nil means a fresh cart).
func New(cartID string, snapshot *domain.Cart, persister Persister, policy domain.Policy) *Store {
	var c *domain.Cart
	if snapshot == nil {
		c = domain.New(cartID, policy)
	} else {
		c = snapshot.Clone()
		c.ID = cartID
		c.Policy = policy
		c.Recalculate()
	}
	return &Store{cart: c, persister: persister}
}

func (s *Store) Snapshot() *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

func (s *Store) AddItem(ctx context.Context, product domain.Product, quantity int, size, color string) (*domain.Cart, error) {
	return s.mutate(ctx, func(c *domain.Cart) error {
		return c.AddItem(product, quantity, size, color)
	})
}

func (s *Store) RemoveItem(ctx context.Context, index int) (*domain.Cart, error) {
	return s.mutate(ctx, func(c *domain.Cart) error {
		return c.RemoveItem(index)
	})
}

func (s *Store) UpdateQuantity(ctx context.Context, index, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, func(c *domain.Cart) error {
		return c.UpdateQuantity(index, quantity)
	})
}

func (s *Store) SetDiscount(ctx context.Context, amount float64) (*domain.Cart, error) {
	return s.mutate(ctx, func(c *domain.Cart) error {
		return c.SetDiscount(amount)
	})
}

func (s *Store) Clear(ctx context.Context) (*domain.Cart, error) {
	return s.mutate(ctx, func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
}

// mutate applies fn to a working copy; the store only adopts it once the
// persister accepted the new state.
func (s *Store) mutate(ctx context.Context, fn func(c *domain.Cart) error) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}

	s.cart = next
	return next.Clone(), nil
}

func (s *Store) persist(ctx context.Context, c *domain.Cart) error {
	if s.persister == nil {
		return nil
	}
	if c.IsEmpty() {
		if err := s.persister.Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("clear persisted cart: %w", err)
		}
		return nil
	}
	if err := s.persister.Save(ctx, c); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}
