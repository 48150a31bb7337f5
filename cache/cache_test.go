package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string, int](DefaultConfig())
	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate(), 0.0001)
}

func TestCache_HitRateZeroWhenNoTraffic(t *testing.T) {
	c := New[string, int](DefaultConfig())
	assert.Equal(t, float64(0), c.Stats().HitRate())
}

func TestCache_TTLExpiry(t *testing.T) {
	cfg := DefaultConfig()
	c := New[string, int](cfg)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.SetTTL("k", 1, 10*time.Millisecond)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(20 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should be expired")
	assert.EqualValues(t, 1, c.Stats().Expirations)
}

func TestCache_LRUEviction(t *testing.T) {
	cfg := Config{MaxEntries: 2, Policy: LRU}
	c := New[string, int](cfg)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a") // touch a, making b the LRU victim
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted as least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestCache_FIFOEviction(t *testing.T) {
	cfg := Config{MaxEntries: 2, Policy: FIFO}
	c := New[string, int](cfg)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a") // FIFO ignores access order
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "a should have been evicted as oldest inserted")
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestCache_LFUEviction(t *testing.T) {
	cfg := Config{MaxEntries: 2, Policy: LFU}
	c := New[string, int](cfg)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	_, _ = c.Get("a")
	_, _ = c.Get("b")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b has fewer accesses than a and should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestCache_Observer(t *testing.T) {
	c := New[string, int](DefaultConfig())
	var events []string
	c.SetObserver(ObserverFunc[string](func(kind EventKind, key string) {
		events = append(events, kind.String()+":"+key)
	}))

	c.Set("a", 1)
	_, _ = c.Get("a")
	_, _ = c.Get("missing")
	c.Remove("a")

	assert.Contains(t, events, "set:a")
	assert.Contains(t, events, "hit:a")
	assert.Contains(t, events, "miss:missing")
	assert.Contains(t, events, "removed:a")
}

func TestCache_ObserverPanicRecovered(t *testing.T) {
	c := New[string, int](DefaultConfig())
	c.SetObserver(ObserverFunc[string](func(kind EventKind, key string) {
		panic("boom")
	}))
	assert.NotPanics(t, func() { c.Set("a", 1) })
}

func TestCache_GetOrFetchCoalescesConcurrent(t *testing.T) {
	c := New[string, string](DefaultConfig())
	var calls int32
	done := make(chan struct{})
	var results [5]string
	for i := 0; i < 5; i++ {
		go func(i int) {
			v, err := c.GetOrFetch("k", "k", func() (string, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(10 * time.Millisecond)
				return "v", nil
			})
			require.NoError(t, err)
			results[i] = v
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 5; i++ {
		<-done
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	for _, r := range results {
		assert.Equal(t, "v", r)
	}
}

func TestCache_GetOrFetchPropagatesError(t *testing.T) {
	c := New[string, int](DefaultConfig())
	wantErr := errors.New("upstream down")
	_, err := c.GetOrFetch("k", "k", func() (int, error) { return 0, wantErr })
	assert.ErrorIs(t, err, wantErr)
	_, ok := c.Get("k")
	assert.False(t, ok, "failed fetch must not populate the cache")
}

func TestCache_Cleanup(t *testing.T) {
	c := New[string, int](DefaultConfig())
	now := time.Now()
	c.now = func() time.Time { return now }
	c.SetTTL("a", 1, 5*time.Millisecond)
	c.SetTTL("b", 2, 0) // never expires

	now = now.Add(10 * time.Millisecond)
	n := c.Cleanup()
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, c.Stats().EntryCount)
	assert.EqualValues(t, 1, c.Stats().Expirations)
}

func TestCache_JanitorStopsOnContextCancel(t *testing.T) {
	c := New[string, int](DefaultConfig())
	c.SetTTL("a", 1, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	c.StartJanitor(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return c.Stats().EntryCount == 0
	}, 200*time.Millisecond, 5*time.Millisecond)

	cancel()
}
