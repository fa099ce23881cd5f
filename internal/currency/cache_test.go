package currency_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/noah-isme/commerce-pricing/internal/currency"
	"github.com/noah-isme/commerce-pricing/internal/obs"
)

type countingRepo struct {
	backing currency.Repository
	gets    int
}

func (c *countingRepo) Get(ctx context.Context, code string) (currency.Currency, error) {
	c.gets++
	return c.backing.Get(ctx, code)
}

func (c *countingRepo) List(ctx context.Context) ([]currency.Currency, error) {
	return c.backing.List(ctx)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestCachedRepositoryReadThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepo{backing: currency.ISORepository()}
	repo := currency.CachedRepository{
		Backing: backing,
		Cache:   currency.NewCache(newTestRedis(t), 0),
	}

	first, err := repo.Get(ctx, "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", first.Code)
	assert.Equal(t, 1, backing.gets)

	second, err := repo.Get(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, backing.gets, "second lookup should hit the cache")
}

func TestCachedRepositoryMiss(t *testing.T) {
	repo := currency.CachedRepository{
		Backing: currency.NewMemoryRepository(),
		Cache:   currency.NewCache(newTestRedis(t), 0),
	}
	_, err := repo.Get(context.Background(), "XXX")
	require.ErrorIs(t, err, currency.ErrNotFound)
}

func TestCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := currency.NewCache(newTestRedis(t), 0)
	cur := currency.Currency{Code: "USD", FractionDigits: 2, RoundingStep: "0"}
	require.NoError(t, cache.Set(ctx, cur))

	var got currency.Currency
	ok, err := cache.Get(ctx, "USD", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cur, got)

	require.NoError(t, cache.Invalidate(ctx, "USD"))
	ok, err = cache.Get(ctx, "USD", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNilCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	var cache *currency.Cache
	var got currency.Currency
	ok, err := cache.Get(ctx, "USD", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, cache.Set(ctx, currency.Currency{Code: "USD"}))
}

func TestCachedRepositoryCountsCacheLookups(t *testing.T) {
	obs.MustRegisterDomainMetrics("cachetest", prometheus.NewRegistry())

	ctx := context.Background()
	repo := currency.CachedRepository{
		Backing: currency.ISORepository(),
		Cache:   currency.NewCache(newTestRedis(t), 0),
	}

	misses := testutil.ToFloat64(obs.CurrencyCacheTotal.WithLabelValues("miss"))
	hits := testutil.ToFloat64(obs.CurrencyCacheTotal.WithLabelValues("hit"))

	_, err := repo.Get(ctx, "USD")
	require.NoError(t, err)
	_, err = repo.Get(ctx, "USD")
	require.NoError(t, err)

	assert.Equal(t, misses+1, testutil.ToFloat64(obs.CurrencyCacheTotal.WithLabelValues("miss")))
	assert.Equal(t, hits+1, testutil.ToFloat64(obs.CurrencyCacheTotal.WithLabelValues("hit")))
}
