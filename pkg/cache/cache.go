package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"watchparty/pkg/clock"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache with TTL support. Expired entries
// are dropped lazily on access and swept at most once per TTL on writes.
type Cache[V any] struct {
	clock      clock.Clock
	defaultTTL time.Duration

	mu        sync.Mutex
	items     map[string]item[V]
	lastSweep time.Time
	hits      int64
	misses    int64
}

// New creates a new cache with default TTL
func New[V any](defaultTTL time.Duration, clk clock.Clock) *Cache[V] {
	return &Cache[V]{
		clock:      clk,
		defaultTTL: defaultTTL,
		items:      make(map[string]item[V]),
		lastSweep:  clk.Now(),
	}
}

// Get retrieves a value from cache
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || !c.clock.Now().Before(it.expiresAt) {
		if ok {
			delete(c.items, key)
		}
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return it.value, true
}

// Set stores a value in cache with default TTL
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value in cache with custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.items[key] = item[V]{value: value, expiresAt: now.Add(ttl)}
	if now.Sub(c.lastSweep) >= c.defaultTTL {
		c.sweepLocked(now)
	}
}

// GetOrLoad returns the cached value for key, or calls load and caches a
// successful result. Errors are not cached.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes a key from cache
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Invalidate removes every key with the given prefix.
func (c *Cache[V]) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

func (c *Cache[V]) sweepLocked(now time.Time) {
	for key, it := range c.items {
		if !now.Before(it.expiresAt) {
			delete(c.items, key)
		}
	}
	c.lastSweep = now
}

// Stats returns cache statistics
type Stats struct {
	Size   int
	Hits   int64
	Misses int64
}

func (c *Cache[V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: len(c.items), Hits: c.hits, Misses: c.misses}
}
