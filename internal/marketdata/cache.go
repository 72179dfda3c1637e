package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"perpbot/internal/model"

	"github.com/go-redis/redis/v8"
)

// CacheTTL bounds how long a cached series may be served. A miss always
// triggers a fresh fetch; stale entries are never returned past TTL.
const CacheTTL = 60 * time.Second

// Cache stores candle series per (symbol, interval).
type Cache interface {
	Get(ctx context.Context, symbol, interval string) (*model.Series, bool)
	Set(ctx context.Context, symbol, interval string, series *model.Series)
}

// RedisCache backs the candle cache with Redis, TTL enforced server-side.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func cacheKey(symbol, interval string) string {
	return fmt.Sprintf("candles:%s:%s", symbol, interval)
}

func (c *RedisCache) Get(ctx context.Context, symbol, interval string) (*model.Series, bool) {
	data, err := c.rdb.Get(ctx, cacheKey(symbol, interval)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[marketdata] cache get %s %s: %v", symbol, interval, err)
		return nil, false
	}
	var series model.Series
	if err := json.Unmarshal(data, &series); err != nil {
		log.Printf("[marketdata] cache decode %s %s: %v", symbol, interval, err)
		return nil, false
	}
	return &series, true
}

func (c *RedisCache) Set(ctx context.Context, symbol, interval string, series *model.Series) {
	data, err := json.Marshal(series)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(symbol, interval), data, CacheTTL).Err(); err != nil {
		log.Printf("[marketdata] cache set %s %s: %v", symbol, interval, err)
	}
}

// MemoryCache is an in-process cache used when Redis is not configured and
// in tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	series  *model.Series
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, symbol, interval string) (*model.Series, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey(symbol, interval)]
	if !ok || c.now().After(e.expires) {
		delete(c.entries, cacheKey(symbol, interval))
		return nil, false
	}
	return e.series, true
}

func (c *MemoryCache) Set(_ context.Context, symbol, interval string, series *model.Series) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(symbol, interval)] = memoryEntry{
		series:  series,
		expires: c.now().Add(CacheTTL),
	}
}

// CachedSource layers a Cache over a Fetcher and satisfies the strategy
// engine's candle source.
type CachedSource struct {
	fetcher *Fetcher
	cache   Cache
}

func NewCachedSource(fetcher *Fetcher, cache Cache) *CachedSource {
	return &CachedSource{fetcher: fetcher, cache: cache}
}

func (s *CachedSource) Fetch(ctx context.Context, symbol, interval string, limit int) (*model.Series, error) {
	if series, ok := s.cache.Get(ctx, symbol, interval); ok {
		return series, nil
	}
	series, err := s.fetcher.Fetch(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, symbol, interval, series)
	return series, nil
}
