// Package cache deduplicates preview decoding across collections.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Loader produces the value for a key. It is invoked at most once per key
// while a load for that key is in flight. The context it receives carries the
// first caller's values but is never cancelled, since other callers may be
// waiting on the same load.
type Loader[V any] func(ctx context.Context) (V, error)

// Cache maps a resource key to a loaded value. Entries are never evicted
// automatically; Invalidate drops one explicitly.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	gens    map[string]uint64
	group   singleflight.Group
	loads   int64
	waiting atomic.Int64
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]V), gens: make(map[string]uint64)}
}

// GetOrLoad returns the cached value for key, or runs loader to produce it.
// Concurrent callers for the same key share one load. A caller whose ctx ends
// returns early without affecting the others. Failed loads are not cached, so
// a later call retries.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, loader Loader[V]) (V, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// A waiter may have stored the value between the miss and this call.
		if v, ok := c.get(key); ok {
			return v, nil
		}
		c.mu.Lock()
		c.loads++
		gen := c.gens[key]
		c.mu.Unlock()

		v, err := loader(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		// Invalidated mid-load: the value describes a file that is gone.
		if c.gens[key] == gen {
			c.entries[key] = v
		}
		c.mu.Unlock()
		return v, nil
	})
	c.waiting.Add(1)
	defer c.waiting.Add(-1)

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Has reports whether key has a loaded value.
func (c *Cache[V]) Has(key string) bool {
	_, ok := c.get(key)
	return ok
}

// Invalidate drops the entry for key. It is used when the backing file is
// confirmed deleted. A load in flight for key still answers its callers but
// is not stored.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
	c.group.Forget(key)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Loads returns how many times a loader has been invoked.
func (c *Cache[V]) Loads() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loads
}

func (c *Cache[V]) get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}
