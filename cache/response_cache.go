package cache

import (
	"strings"
	"sync"
)

// Key is a structured cache key whose string form is
// "service:kind:segment..." (e.g. "storage:bucket:my-bucket",
// "compute:instance:proj:us-central1-a:vm-1"). Segments are uninterpreted
// strings; colons inside a segment are rejected by NewKey.
type Key struct {
	Service  string
	Kind     string
	Segments []string
}

// NewKey builds a Key, returning an error if any component contains a
// colon (which would make the string form ambiguous to parse back).
func NewKey(service, kind string, segments ...string) (Key, error) {
	for _, part := range append([]string{service, kind}, segments...) {
		if strings.Contains(part, ":") {
			return Key{}, &KeyError{Part: part}
		}
	}
	return Key{Service: service, Kind: kind, Segments: segments}, nil
}

// KeyError reports an invalid key component.
type KeyError struct {
	Part string
}

func (e *KeyError) Error() string {
	return "cache: key component must not contain ':': " + e.Part
}

// String renders the key in "service:kind:segment..." form.
func (k Key) String() string {
	parts := append([]string{k.Service, k.Kind}, k.Segments...)
	return strings.Join(parts, ":")
}

// ResponseCache is a typed wrapper over Cache[string, V] keyed by the
// structured Key grammar, adding prefix- and service-scoped invalidation
// for cache stampede control after writes (e.g. invalidating every cached
// compute instance in a project after an update call).
type ResponseCache[V any] struct {
	mu    sync.RWMutex
	cache *Cache[string, V]
}

// NewResponseCache wraps cfg in a ResponseCache.
func NewResponseCache[V any](cfg Config) *ResponseCache[V] {
	return &ResponseCache[V]{cache: New[string, V](cfg)}
}

func (r *ResponseCache[V]) Get(k Key) (V, bool) {
	return r.cache.Get(k.String())
}

func (r *ResponseCache[V]) Set(k Key, v V) {
	r.cache.Set(k.String(), v)
}

func (r *ResponseCache[V]) GetOrFetch(k Key, fetch func() (V, error)) (V, error) {
	s := k.String()
	return r.cache.GetOrFetch(s, s, fetch)
}

func (r *ResponseCache[V]) Remove(k Key) {
	r.cache.Remove(k.String())
}

func (r *ResponseCache[V]) Stats() Stats {
	return r.cache.Stats()
}

// InvalidatePrefix removes every entry whose key string starts with
// prefix. Removal is an internal purge: it does not emit EventRemoved or
// EventEvicted, since it is not driven by a single logical key operation.
func (r *ResponseCache[V]) InvalidatePrefix(prefix string) int {
	c := r.cache
	c.mu.Lock()
	var toRemove []string
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			toRemove = append(toRemove, k)
		}
	}
	for _, k := range toRemove {
		if elem, ok := c.items[k]; ok {
			c.removeLocked(elem)
		}
	}
	c.mu.Unlock()
	return len(toRemove)
}

// InvalidateService removes every entry for the given service; equivalent
// to InvalidatePrefix(service + ":").
func (r *ResponseCache[V]) InvalidateService(service string) int {
	return r.InvalidatePrefix(service + ":")
}
