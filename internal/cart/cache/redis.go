package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/storefront/internal/cart/domain"
	"github.com/redis/go-redis/v9"
)

// snapshotVersion changes whenever the cached cart layout does. Entries
// written with another version are dropped on read.
const snapshotVersion = 1

type snapshot struct {
	Version int          `json:"v"`
	Cart    *domain.Cart `json:"cart"`
}

// Options tune cart snapshot expiry. Each write lives BaseTTL plus a random
// share of MaxJitter, so carts saved together do not expire together.
type Options struct {
	BaseTTL   time.Duration
	MaxJitter time.Duration
	KeyPrefix string
}

func DefaultOptions() Options {
	return Options{
		BaseTTL:   15 * time.Minute,
		MaxJitter: 5 * time.Minute,
		KeyPrefix: "cart:",
	}
}

// RedisCache keeps read-through cart snapshots. It works against a single
// node, a sentinel group or a cluster.
type RedisCache struct {
	client redis.UniversalClient
	opts   Options
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return NewRedisCacheWithOptions(client, DefaultOptions())
}

func NewRedisCacheWithOptions(client redis.UniversalClient, opts Options) *RedisCache {
	def := DefaultOptions()
	if opts.BaseTTL <= 0 {
		opts.BaseTTL = def.BaseTTL
	}
	if opts.MaxJitter < 0 {
		opts.MaxJitter = 0
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = def.KeyPrefix
	}
	return &RedisCache{client: client, opts: opts}
}

// Get returns the cached cart or ErrCacheMiss. Unreadable or outdated
// entries are deleted and reported as a miss.
func (r *RedisCache) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	key := r.key(cartID)
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Version != snapshotVersion || snap.Cart == nil {
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			return nil, fmt.Errorf("drop unreadable entry %s: %w", key, delErr)
		}
		return nil, fmt.Errorf("%w: unreadable entry %s dropped", ErrCacheMiss, key)
	}
	return snap.Cart, nil
}

func (r *RedisCache) Set(ctx context.Context, cartID string, cart *domain.Cart) error {
	payload, err := json.Marshal(snapshot{Version: snapshotVersion, Cart: cart})
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}
	key := r.key(cartID)
	if err := r.client.Set(ctx, key, payload, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, cartID string) error {
	key := r.key(cartID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) ttl() time.Duration {
	if r.opts.MaxJitter <= 0 {
		return r.opts.BaseTTL
	}
	return r.opts.BaseTTL + rand.N(r.opts.MaxJitter+1)
}

func (r *RedisCache) key(cartID string) string {
	return r.opts.KeyPrefix + cartID
}
