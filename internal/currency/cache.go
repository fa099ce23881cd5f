package currency

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/commerce-pricing/internal/obs"
)

// Cache wraps Redis helpers for cached currency lookups.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(code string) string {
	return "pricing:currency:" + strings.ToUpper(code)
}

// Get reports whether the code was cached and decodes it into dst.
func (c *Cache) Get(ctx context.Context, code string, dst *Currency) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	data, err := c.client.Get(ctx, cacheKey(code)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores the currency with the configured TTL.
func (c *Cache) Set(ctx context.Context, cur Currency) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(cur)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(cur.Code), data, c.ttl).Err()
}

// Invalidate drops the cached entry for the given code.
func (c *Cache) Invalidate(ctx context.Context, code string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKey(code)).Err()
}

// CachedRepository is a read-through cache in front of another Repository.
// Lookup misses and cache errors fall back to the backing repository; the
// cache never turns a resolvable currency into a failure.
type CachedRepository struct {
	Backing Repository
	Cache   *Cache
}

// Get implements Repository.
func (r CachedRepository) Get(ctx context.Context, code string) (Currency, error) {
	var cached Currency
	if ok, err := r.Cache.Get(ctx, code, &cached); err == nil && ok {
		if obs.CurrencyCacheTotal != nil {
			obs.CurrencyCacheTotal.WithLabelValues("hit").Inc()
		}
		return cached, nil
	}
	if obs.CurrencyCacheTotal != nil {
		obs.CurrencyCacheTotal.WithLabelValues("miss").Inc()
	}
	cur, err := r.Backing.Get(ctx, code)
	if err != nil {
		return Currency{}, err
	}
	_ = r.Cache.Set(ctx, cur)
	return cur, nil
}

// List implements Repository. Lists always hit the backing store.
func (r CachedRepository) List(ctx context.Context) ([]Currency, error) {
	return r.Backing.List(ctx)
}
