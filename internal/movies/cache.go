package movies

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/eventura/movie-autocomplete/internal/store"
	"golang.org/x/sync/singleflight"
)

// ResultCache fronts the resolve→fetch→rank pipeline with a short-TTL cache
// keyed by normalized query. Entries are never invalidated explicitly; they
// expire. Concurrent misses for the same key are collapsed through
// singleflight so the pipeline runs once.
type ResultCache struct {
	store  store.Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache creates a ResultCache with the given TTL.
func NewResultCache(s store.Store, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &ResultCache{
		store:  s,
		ttl:    ttl,
		logger: slog.Default().With("component", "result-cache"),
	}
}

func (c *ResultCache) key(normalizedQuery string) string {
	if normalizedQuery == "" {
		return cacheKeyPrefix + trendingCacheKey
	}
	return cacheKeyPrefix + normalizedQuery
}

// Get returns the cached suggestions for the query, or ok=false on a miss.
// A payload that fails to deserialize counts as a miss and is recomputed.
func (c *ResultCache) Get(ctx context.Context, normalizedQuery string) ([]Suggestion, bool) {
	key := c.key(normalizedQuery)
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	if !found {
		c.misses.Add(1)
		return nil, false
	}
	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(data), &suggestions); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return suggestions, true
}

// Set stores the suggestions under the query's cache key with the cache TTL.
// Serialization or store failures are logged, not propagated; the caller
// already has the result.
func (c *ResultCache) Set(ctx context.Context, normalizedQuery string, suggestions []Suggestion) {
	key := c.key(normalizedQuery)
	data, err := json.Marshal(suggestions)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.SetWithExpiry(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value on a hit; on a miss it runs computeFn
// once for all concurrent callers, caches the result, and returns it. The
// second return reports whether the value came from cache.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	normalizedQuery string,
	computeFn func() ([]Suggestion, error),
) ([]Suggestion, bool, error) {
	if suggestions, ok := c.Get(ctx, normalizedQuery); ok {
		return suggestions, true, nil
	}
	key := c.key(normalizedQuery)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if suggestions, ok := c.Get(ctx, normalizedQuery); ok {
			return suggestions, nil
		}
		suggestions, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, normalizedQuery, suggestions)
		return suggestions, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]Suggestion), false, nil
}

// Stats returns the hit and miss counters.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
