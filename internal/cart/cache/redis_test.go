package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/cart/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func sampleCart(id string) *domain.Cart {
	c := domain.New(id, domain.DefaultPolicy)
	_ = c.AddItem(domain.Product{ID: "p-1", Name: "Abaya", Price: 100}, 2, "M", "black")
	_ = c.AddItem(domain.Product{ID: "p-2", Name: "Hijab", Price: 35}, 1, "", "")
	return c
}

func storeSnapshot(t *testing.T, mr *miniredis.Miniredis, key string, snap snapshot) {
	t.Helper()
	payload, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, mr.Set(key, string(payload)))
}

func TestGet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	cart := sampleCart("cart123")
	storeSnapshot(t, mr, "cart:cart123", snapshot{Version: snapshotVersion, Cart: cart})

	result, err := cache.Get(context.Background(), "cart123")
	require.NoError(t, err)
	assert.Equal(t, "cart123", result.ID)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, "p-1", result.Items[0].Product.ID)
	assert.Equal(t, cart.Total, result.Total)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	result, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_UnreadableEntriesAreDropped(t *testing.T) {
	tests := map[string]string{
		"truncated json":   `{"v":1,"cart":{"id":`,
		"older version":    `{"v":0,"cart":{"id":"cart123"}}`,
		"bare cart":        `{"id":"cart123","items":[]}`,
		"missing snapshot": `{"v":1}`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			cache, mr, cleanup := setupTestRedis(t)
			defer cleanup()
			require.NoError(t, mr.Set("cart:cart123", raw))

			result, err := cache.Get(context.Background(), "cart123")
			assert.ErrorIs(t, err, ErrCacheMiss)
			assert.Nil(t, result)
			assert.False(t, mr.Exists("cart:cart123"))
		})
	}
}

func TestSet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	err := cache.Set(context.Background(), "cart456", sampleCart("cart456"))
	require.NoError(t, err)

	stored, err := mr.Get("cart:cart456")
	require.NoError(t, err)

	var snap snapshot
	require.NoError(t, json.Unmarshal([]byte(stored), &snap))
	assert.Equal(t, snapshotVersion, snap.Version)
	require.NotNil(t, snap.Cart)
	assert.Equal(t, "cart456", snap.Cart.ID)
	assert.Len(t, snap.Cart.Items, 2)
}

func TestSet_ThenGet(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	cart := sampleCart("cart321")
	require.NoError(t, cache.Set(ctx, "cart321", cart))

	got, err := cache.Get(ctx, "cart321")
	require.NoError(t, err)
	assert.Equal(t, cart.Items, got.Items)
	assert.Equal(t, cart.Total, got.Total)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	err := cache.Set(context.Background(), "cart789", domain.New("cart789", domain.DefaultPolicy))
	require.NoError(t, err)

	ttl := mr.TTL("cart:cart789")
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestSet_CustomOptions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisCacheWithOptions(client, Options{BaseTTL: time.Hour, KeyPrefix: "sf:cart:"})
	require.NoError(t, cache.Set(context.Background(), "cart1", sampleCart("cart1")))

	assert.True(t, mr.Exists("sf:cart:cart1"))
	assert.Equal(t, time.Hour, mr.TTL("sf:cart:cart1"))
}

func TestDelete_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	storeSnapshot(t, mr, "cart:cart999", snapshot{Version: snapshotVersion, Cart: sampleCart("cart999")})
	assert.True(t, mr.Exists("cart:cart999"))

	require.NoError(t, cache.Delete(context.Background(), "cart999"))
	assert.False(t, mr.Exists("cart:cart999"))
}

func TestDelete_NonExistentKey(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	assert.NoError(t, cache.Delete(context.Background(), "nonexistent"))
}
