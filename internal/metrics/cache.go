package metrics

import (
	"sync"
	"time"
)

// Cache holds one derived report for a bounded TTL. It is a pure
// performance optimization: correctness of the underlying counts never
// depends on it, and Invalidate lets tests reset state between cases.
type Cache[T any] struct {
	mu       sync.Mutex
	value    *T
	storedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

func NewCache[T any](ttl time.Duration, now func() time.Time) *Cache[T] {
	if now == nil {
		now = time.Now
	}

	return &Cache[T]{ttl: ttl, now: now}
}

func (c *Cache[T]) Get() (*T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value == nil || c.now().Sub(c.storedAt) > c.ttl {
		return nil, false
	}

	return c.value, true
}

func (c *Cache[T]) Set(value *T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = value
	c.storedAt = c.now()
}

func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = nil
}
