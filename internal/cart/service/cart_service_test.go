package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/cart/cache"
	"github.com/fjod/storefront/internal/cart/domain"
	"github.com/fjod/storefront/internal/cart/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mu        sync.Mutex
	carts     map[string]*domain.Cart
	getCalls  int
	getErr    error
	upsertErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{carts: map[string]*domain.Cart{}}
}

func (m *mockRepo) GetCart(_ context.Context, id string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.carts[id]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (m *mockRepo) UpsertCart(_ context.Context, c *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.carts[c.ID] = c.Clone()
	return nil
}

func (m *mockRepo) DeleteCart(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[id]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.carts, id)
	return nil
}

func setup(t *testing.T) (*CartService, *mockRepo, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newMockRepo()
	return NewCartService(repo, cache.NewRedisCache(client), domain.DefaultPolicy), repo, mr
}

var kaftan = domain.Product{ID: "p-3", Name: "Kaftan", Price: 180}

func TestGetCart_MissingIsEmpty(t *testing.T) {
	svc, _, _ := setup(t)

	cart, err := svc.GetCart(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, "nobody", cart.ID)
	assert.Equal(t, 0.0, cart.Total)
}

func TestOpen_MutationWritesThroughAndInvalidates(t *testing.T) {
	svc, repo, mr := setup(t)
	ctx := context.Background()

	mr.Set("cart:c1", `{"v":1,"cart":{"id":"c1","items":[]}}`)

	st, err := svc.Open(ctx, "c1")
	require.NoError(t, err)
	_, err = st.AddItem(ctx, kaftan, 2, "L", "")
	require.NoError(t, err)

	require.Contains(t, repo.carts, "c1")
	assert.Equal(t, 2, repo.carts["c1"].Items[0].Quantity)
	assert.False(t, mr.Exists("cart:c1"), "cache entry must be invalidated")
}

func TestGetCart_PopulatesCache(t *testing.T) {
	svc, repo, mr := setup(t)
	ctx := context.Background()

	c := domain.New("c1", domain.DefaultPolicy)
	require.NoError(t, c.AddItem(kaftan, 1, "", ""))
	repo.carts["c1"] = c

	got, err := svc.GetCart(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	require.Eventually(t, func() bool { return mr.Exists("cart:c1") }, time.Second, 10*time.Millisecond)

	got, err = svc.GetCart(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, 1, repo.getCalls, "second read must be served from cache")
}

func TestClearCart_RemovesRepoAndCache(t *testing.T) {
	svc, repo, mr := setup(t)
	ctx := context.Background()

	st, err := svc.Open(ctx, "c1")
	require.NoError(t, err)
	_, err = st.AddItem(ctx, kaftan, 1, "", "")
	require.NoError(t, err)
	mr.Set("cart:c1", `{}`)

	require.NoError(t, svc.ClearCart(ctx, "c1"))

	assert.NotContains(t, repo.carts, "c1")
	assert.False(t, mr.Exists("cart:c1"))

	reloaded, err := svc.GetCart(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, reloaded.IsEmpty())
}

func TestClearCart_UnknownCartIsNotAnError(t *testing.T) {
	svc, _, _ := setup(t)
	assert.NoError(t, svc.ClearCart(context.Background(), "ghost"))
}

func TestOpen_RepoError(t *testing.T) {
	svc, repo, _ := setup(t)
	repo.getErr = errors.New("mongo unavailable")

	_, err := svc.Open(context.Background(), "c1")
	assert.ErrorContains(t, err, "mongo unavailable")
}

func TestSave_RepoErrorKeepsStoreState(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	repo.upsertErr = errors.New("write failed")

	st, err := svc.Open(ctx, "c1")
	require.NoError(t, err)
	_, err = st.AddItem(ctx, kaftan, 1, "", "")
	require.Error(t, err)
	assert.True(t, st.Snapshot().IsEmpty())
}
