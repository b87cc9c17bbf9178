package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/storefront/internal/cart/cache"
	"github.com/fjod/storefront/internal/cart/domain"
	"github.com/fjod/storefront/internal/cart/repository"
	"github.com/fjod/storefront/internal/cart/store"
	"github.com/fjod/storefront/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CartService loads carts cache-first and is the persister behind every
// cart store it opens: Mongo is written through, Redis is invalidated.
type CartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	policy domain.Policy
	sfg    singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, policy domain.Policy) *CartService {
	return &CartService{
		repo:   repo,
		cache:  cache,
		policy: policy,
	}
}

// Open returns a store seeded from the persisted snapshot.
func (s *CartService) Open(ctx context.Context, cartID string) (*store.Store, error) {
	snapshot, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return store.New(cartID, snapshot, s, s.policy), nil
}

// GetCart returns the current cart, empty when nothing is stored.
func (s *CartService) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	st, err := s.Open(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return st.Snapshot(), nil
}

func (s *CartService) load(ctx context.Context, cartID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(cartID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, cartID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.FromContext(ctx).Warn("cart cache get failed", zap.String("cart_id", cartID), zap.Error(err))
		}

		cart, err = s.repo.GetCart(ctx, cartID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return (*domain.Cart)(nil), nil
		}
		if err != nil {
			return nil, err
		}

		go func(c *domain.Cart) {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, cartID, c); errSet != nil {
				logger.L().Warn("cart cache set failed", zap.String("cart_id", cartID), zap.Error(errSet))
			}
		}(cart.Clone())

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	cart := v.(*domain.Cart)
	if cart == nil {
		return nil, nil
	}
	// singleflight shares the pointer between callers
	return cart.Clone(), nil
}

// Save implements store.Persister.
func (s *CartService) Save(ctx context.Context, cart *domain.Cart) error {
	if err := s.repo.UpsertCart(ctx, cart.Clone()); err != nil {
		logger.FromContext(ctx).Error("cart upsert failed", zap.String("cart_id", cart.ID), zap.Error(err))
		return err
	}
	s.invalidateCache(ctx, cart.ID)
	return nil
}

// Delete implements store.Persister. A cart that was never stored counts as deleted.
func (s *CartService) Delete(ctx context.Context, cartID string) error {
	if err := s.repo.DeleteCart(ctx, cartID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		logger.FromContext(ctx).Error("cart delete failed", zap.String("cart_id", cartID), zap.Error(err))
		return err
	}
	s.invalidateCache(ctx, cartID)
	return nil
}

// ClearCart drops all persisted state for a cart.
func (s *CartService) ClearCart(ctx context.Context, cartID string) error {
	return s.Delete(ctx, cartID)
}

func (s *CartService) invalidateCache(ctx context.Context, cartID string) {
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(delCtx, cartID); err != nil {
		logger.FromContext(ctx).Warn("cart cache invalidate failed", zap.String("cart_id", cartID), zap.Error(err))
	}
}
