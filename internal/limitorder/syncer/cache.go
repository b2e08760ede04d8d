package syncer

import (
	"context"
	"sync"
)

// Cache memoizes the results of an operation by a comparable composite key.
// A second caller with the same key waits on the in-flight call instead of
// starting a duplicate; afterwards every caller gets the stored result.
//
// Failures are memoized too. Callers that need retry-after-failure must vary
// the key or bypass the cache. Entries live for the life of the process; the
// keys used here (endpoint, filter, block range) describe append-only data,
// so staleness is not a concern.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*result[V]
}

type result[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// NewCache creates an empty cache.
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{entries: make(map[K]*result[V])}
}

// Do returns the memoized result for key, joining an in-flight call when one
// exists and invoking fn otherwise. fn runs on the calling goroutine; its
// result (success or failure) is stored before waiters are released. Waiting
// callers may bail out via ctx without disturbing the in-flight call.
func (c *Cache[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		c.mu.Unlock()
		select {
		case <-entry.done:
			return entry.val, entry.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	entry := &result[V]{done: make(chan struct{})}
	c.entries[key] = entry
	c.mu.Unlock()

	entry.val, entry.err = fn()
	close(entry.done)
	return entry.val, entry.err
}

// Len reports the number of stored or in-flight entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
