// Package coalesce deduplicates concurrent identical in-flight operations
// so that N callers requesting the same key cause exactly one underlying
// fetch, with its result (value or error) shared by all callers. It wraps
// golang.org/x/sync/singleflight the way the teacher's HTTP call step uses
// a singleflight.Group per OAuth2 credential set (module/pipeline_step_http_call.go),
// generalized from a single hard-coded key to an arbitrary string-like key
// type and typed value.
package coalesce

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Coalescer deduplicates concurrent calls to Coalesce for the same key. K
// is constrained to types with an underlying string representation (scope
// names, cache keys) since the underlying singleflight.Group keys on string.
type Coalescer[K ~string, V any] struct {
	group singleflight.Group

	mu       sync.Mutex
	inFlight map[K]int // reference count of current waiters per key
}

// New creates an empty Coalescer.
func New[K ~string, V any]() *Coalescer[K, V] {
	return &Coalescer[K, V]{inFlight: make(map[K]int)}
}

// Coalesce runs fetch for key if no operation is currently in flight for
// it, and shares the result with every caller (current and joining) for as
// long as that single fetch runs; the entry is removed from the in-flight
// set the instant the fetch completes, whether it succeeds or fails.
func (c *Coalescer[K, V]) Coalesce(key K, fetch func() (V, error)) (V, error) {
	c.mu.Lock()
	c.inFlight[key]++
	c.mu.Unlock()

	v, err, _ := c.group.Do(string(key), func() (any, error) {
		return fetch()
	})

	c.mu.Lock()
	c.inFlight[key]--
	if c.inFlight[key] <= 0 {
		delete(c.inFlight, key)
	}
	c.mu.Unlock()

	var zero V
	if err != nil {
		return zero, err
	}
	return v.(V), nil
}

// HasInFlight reports whether an operation for key is currently in flight.
func (c *Coalescer[K, V]) HasInFlight(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[key] > 0
}
