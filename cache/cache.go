// Package cache implements a generic, typed, bounded in-memory cache with
// TTL expiration, pluggable eviction policy, observer hooks, and an
// integrated Coalescer for getOrFetch. It generalizes the teacher's
// cache/cache.go CacheLayer (container/list-backed LRU with hit/miss/
// eviction counters) to arbitrary key/value types and more than one
// eviction policy.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/GoCodeAlone/gcprest/coalesce"
)

// EvictionPolicy selects which entry is evicted when the cache is at
// capacity and a new key is being inserted.
type EvictionPolicy int

const (
	// LRU evicts the entry with the oldest lastAccessedAt; ties broken by
	// the older insertedAt.
	LRU EvictionPolicy = iota
	// FIFO evicts the entry with the oldest insertedAt.
	FIFO
	// LFU evicts the entry with the smallest accessCount; ties broken by
	// the older lastAccessedAt.
	LFU
)

// EventKind discriminates an observer event.
type EventKind int

const (
	EventHit EventKind = iota
	EventMiss
	EventSet
	EventRemoved
	EventEvicted
	EventExpired
)

func (k EventKind) String() string {
	switch k {
	case EventHit:
		return "hit"
	case EventMiss:
		return "miss"
	case EventSet:
		return "set"
	case EventRemoved:
		return "removed"
	case EventEvicted:
		return "evicted"
	case EventExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Observer receives cache events synchronously. Implementations must not
// block for long and must not panic; a panicking observer is recovered by
// the cache so the triggering operation still succeeds.
type Observer[K comparable] interface {
	OnEvent(kind EventKind, key K)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc[K comparable] func(kind EventKind, key K)

func (f ObserverFunc[K]) OnEvent(kind EventKind, key K) { f(kind, key) }

type entry[K comparable, V any] struct {
	key            K
	value          V
	insertedAt     time.Time
	ttl            time.Duration
	accessCount    int64
	lastAccessedAt time.Time
}

func (e *entry[K, V]) expired(now time.Time) bool {
	return e.ttl > 0 && now.After(e.insertedAt.Add(e.ttl))
}

// Config configures a Cache.
type Config struct {
	MaxEntries      int
	DefaultTTL      time.Duration
	Policy          EvictionPolicy
	EnableCoalesce  bool
}

// DefaultConfig returns sensible defaults: 10,000 entries, 5 minute TTL,
// LRU eviction, coalescing enabled.
func DefaultConfig() Config {
	return Config{
		MaxEntries:     10_000,
		DefaultTTL:     5 * time.Minute,
		Policy:         LRU,
		EnableCoalesce: true,
	}
}

// Stats holds running cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	EntryCount  int
}

// HitRate returns hits/(hits+misses), defined as 0 when both are zero.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// MissRate returns 1 - HitRate.
func (s Stats) MissRate() float64 {
	return 1 - s.HitRate()
}

// Cache is a generic, bounded, TTL-aware cache with pluggable eviction.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]*list.Element
	order    *list.List // front = most recently touched for LRU purposes
	cfg      Config
	observer Observer[K]
	coalescer *coalesce.Coalescer[stringKey, V]

	hits, misses, evictions, expirations int64

	now func() time.Time

	stopJanitor chan struct{}
	janitorOnce sync.Once
}

// stringKey is the string-like key type the embedded Coalescer requires;
// callers supply a string form of K as GetOrFetch's keyStr argument.
type stringKey string

// New creates a Cache with the given configuration.
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10_000
	}
	c := &Cache[K, V]{
		items: make(map[K]*list.Element, cfg.MaxEntries),
		order: list.New(),
		cfg:   cfg,
		now:   time.Now,
	}
	if cfg.EnableCoalesce {
		c.coalescer = coalesce.New[stringKey, V]()
	}
	return c
}

// SetObserver installs the single observer sink. Pass nil to remove it.
func (c *Cache[K, V]) SetObserver(obs Observer[K]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = obs
}

func (c *Cache[K, V]) emit(kind EventKind, key K) {
	obs := c.observer
	if obs == nil {
		return
	}
	defer func() { _ = recover() }()
	obs.OnEvent(kind, key)
}

// Get returns the value for k if present and not expired.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	elem, ok := c.items[k]
	if !ok {
		c.misses++
		c.mu.Unlock()
		var zero V
		c.emit(EventMiss, k)
		return zero, false
	}
	e := elem.Value.(*entry[K, V])
	if e.expired(c.now()) {
		c.removeLocked(elem)
		c.misses++
		c.expirations++
		c.mu.Unlock()
		var zero V
		c.emit(EventMiss, k)
		return zero, false
	}
	e.accessCount++
	e.lastAccessedAt = c.now()
	c.order.MoveToFront(elem)
	c.hits++
	v := e.value
	c.mu.Unlock()
	c.emit(EventHit, k)
	return v, true
}

// Set inserts or replaces k's value using the cache's default TTL.
func (c *Cache[K, V]) Set(k K, v V) {
	c.SetTTL(k, v, c.cfg.DefaultTTL)
}

// SetTTL inserts or replaces k's value with an explicit TTL. A TTL of 0
// means the entry never expires.
func (c *Cache[K, V]) SetTTL(k K, v V, ttl time.Duration) {
	c.mu.Lock()
	now := c.now()
	if elem, ok := c.items[k]; ok {
		e := elem.Value.(*entry[K, V])
		e.value = v
		e.insertedAt = now
		e.ttl = ttl
		e.lastAccessedAt = now
		c.order.MoveToFront(elem)
		c.mu.Unlock()
		c.emit(EventSet, k)
		return
	}

	var evictedKey K
	var didEvict bool
	if len(c.items) >= c.cfg.MaxEntries {
		evictedKey, didEvict = c.evictLocked()
	}

	e := &entry[K, V]{key: k, value: v, insertedAt: now, ttl: ttl, lastAccessedAt: now}
	elem := c.order.PushFront(e)
	c.items[k] = elem
	c.mu.Unlock()

	if didEvict {
		c.emit(EventEvicted, evictedKey)
	}
	c.emit(EventSet, k)
}

// Remove deletes k if present, emitting EventRemoved.
func (c *Cache[K, V]) Remove(k K) {
	c.mu.Lock()
	elem, ok := c.items[k]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.removeLocked(elem)
	c.mu.Unlock()
	c.emit(EventRemoved, k)
}

// Contains reports whether k is present and not expired, without affecting
// statistics or LRU order.
func (c *Cache[K, V]) Contains(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[k]
	if !ok {
		return false
	}
	e := elem.Value.(*entry[K, V])
	return !e.expired(c.now())
}

// Clear drops all entries without emitting per-entry events.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element, c.cfg.MaxEntries)
	c.order.Init()
}

// Cleanup scans for and removes all expired entries, emitting EventExpired
// for each. Safe to call concurrently with Get/Set.
func (c *Cache[K, V]) Cleanup() int {
	now := c.now()
	var removed []K

	c.mu.Lock()
	var next *list.Element
	for elem := c.order.Front(); elem != nil; elem = next {
		next = elem.Next()
		e := elem.Value.(*entry[K, V])
		if e.expired(now) {
			removed = append(removed, e.key)
			c.removeLocked(elem)
		}
	}
	c.expirations += int64(len(removed))
	c.mu.Unlock()

	for _, k := range removed {
		c.emit(EventExpired, k)
	}
	return len(removed)
}

// Stats returns a snapshot of running counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		EntryCount:  len(c.items),
	}
}

// GetOrFetch returns the cached value for k, or runs fetch and caches its
// result on success. If the cache was constructed with EnableCoalesce,
// concurrent getOrFetch calls for the same keyStr are deduplicated.
// keyStr must be a stable string form of k (used only for coalescing; the
// cache itself is keyed by k).
func (c *Cache[K, V]) GetOrFetch(k K, keyStr string, fetch func() (V, error)) (V, error) {
	if v, ok := c.Get(k); ok {
		return v, nil
	}

	var v V
	var err error
	if c.coalescer != nil {
		v, err = c.coalescer.Coalesce(stringKey(keyStr), func() (V, error) {
			if cached, ok := c.Get(k); ok {
				return cached, nil
			}
			return fetch()
		})
	} else {
		v, err = fetch()
	}
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(k, v)
	return v, nil
}

// StartJanitor runs Cleanup on the given interval until ctx is cancelled.
// spec.md's Open Questions leave cleanup cadence to implementers provided
// Cleanup stays correct under concurrent Get/Set, which it is (same lock).
func (c *Cache[K, V]) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// removeLocked removes elem from both the map and the list. Caller must
// hold c.mu.
func (c *Cache[K, V]) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry[K, V])
	delete(c.items, e.key)
	c.order.Remove(elem)
}

// evictLocked removes one entry according to the configured policy and
// returns its key. Caller must hold c.mu.
func (c *Cache[K, V]) evictLocked() (K, bool) {
	var victim *list.Element
	switch c.cfg.Policy {
	case FIFO:
		victim = c.oldestInsertedLocked()
	case LFU:
		victim = c.leastFrequentlyUsedLocked()
	default: // LRU
		victim = c.order.Back()
	}
	if victim == nil {
		var zero K
		return zero, false
	}
	e := victim.Value.(*entry[K, V])
	key := e.key
	c.removeLocked(victim)
	c.evictions++
	return key, true
}

func (c *Cache[K, V]) oldestInsertedLocked() *list.Element {
	var oldest *list.Element
	var oldestTime time.Time
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry[K, V])
		if oldest == nil || e.insertedAt.Before(oldestTime) {
			oldest = elem
			oldestTime = e.insertedAt
		}
	}
	return oldest
}

func (c *Cache[K, V]) leastFrequentlyUsedLocked() *list.Element {
	var victim *list.Element
	var victimEntry *entry[K, V]
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry[K, V])
		if victim == nil ||
			e.accessCount < victimEntry.accessCount ||
			(e.accessCount == victimEntry.accessCount && e.lastAccessedAt.Before(victimEntry.lastAccessedAt)) {
			victim = elem
			victimEntry = e
		}
	}
	return victim
}
