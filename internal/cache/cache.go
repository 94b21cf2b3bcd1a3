// Package cache provides time-boxed memoization for expensive external
// lookups, with explicit per-key invalidation. Concurrent misses on the same
// key compute the value once and share the result.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	mu        sync.Mutex
	loaded    bool
	value     V
	expiresAt time.Time // zero means the entry never expires on its own
}

// Cache memoizes values of type V by string key
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
}

// New creates an empty cache
func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]*entry[V])}
}

// GetOrLoad returns the cached value for key, or runs load and caches its
// result for ttl. A ttl of zero caches without expiry, for keys whose
// freshness is driven by explicit invalidation (tracked rooms) rather than
// time. Errors are returned to the caller and never cached.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded && (e.expiresAt.IsZero() || time.Now().Before(e.expiresAt)) {
		return e.value, nil
	}

	value, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	e.value = value
	e.loaded = true
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
	return value, nil
}

// Invalidate evicts the entry for key. Loads already in flight for the old
// entry finish against it and are not shared with later callers.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of live entries, counting expired ones that have
// not been reloaded yet.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
