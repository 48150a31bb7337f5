package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/GoCodeAlone/gcprest/gcperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("storage", Config{
		FailureThreshold:    2,
		SuccessThreshold:    2,
		OpenDuration:        100 * time.Millisecond,
		HalfOpenMaxRequests: 2,
		FailureWindow:       time.Minute,
	})

	failing := errors.New("boom")
	err1 := b.Execute(func() error { return failing })
	require.ErrorIs(t, err1, failing)
	assert.Equal(t, Closed, b.State())

	err2 := b.Execute(func() error { return failing })
	require.ErrorIs(t, err2, failing)
	assert.Equal(t, Open, b.State())

	err3 := b.Execute(func() error { return nil })
	require.Error(t, err3, "immediate retry while open should be rejected")
	var cbErr *gcperrors.CircuitBreakerError
	require.ErrorAs(t, err3, &cbErr)
	assert.InDelta(t, 0.1, cbErr.RemainingSeconds, 0.05)
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b := New("compute", Config{
		FailureThreshold:    2,
		SuccessThreshold:    2,
		OpenDuration:        100 * time.Millisecond,
		HalfOpenMaxRequests: 2,
		FailureWindow:       time.Minute,
	})

	failing := errors.New("boom")
	_ = b.Execute(func() error { return failing })
	_ = b.Execute(func() error { return failing })
	require.Equal(t, Open, b.State())

	time.Sleep(150 * time.Millisecond)

	err := b.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, HalfOpen, b.State(), "one success in half-open with successThreshold=2 should not yet close")

	err = b.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := New("iam", Config{
		FailureThreshold:    1,
		SuccessThreshold:    2,
		OpenDuration:        50 * time.Millisecond,
		HalfOpenMaxRequests: 1,
		FailureWindow:       time.Minute,
	})
	failing := errors.New("boom")
	_ = b.Execute(func() error { return failing })
	require.Equal(t, Open, b.State())

	time.Sleep(60 * time.Millisecond)
	_ = b.Execute(func() error { return failing })
	assert.Equal(t, Open, b.State(), "a half-open probe failure must reopen the circuit")
}

func TestBreaker_FailureWindowExpiry(t *testing.T) {
	b := New("run", Config{
		FailureThreshold:    3,
		SuccessThreshold:    1,
		OpenDuration:        time.Second,
		HalfOpenMaxRequests: 1,
		FailureWindow:       10 * time.Millisecond,
	})
	now := time.Now()
	b.now = func() time.Time { return now }

	failing := errors.New("boom")
	_ = b.Execute(func() error { return failing })
	_ = b.Execute(func() error { return failing })
	assert.Equal(t, Closed, b.State())

	now = now.Add(20 * time.Millisecond) // window has expired for both failures
	_ = b.Execute(func() error { return failing })
	assert.Equal(t, Closed, b.State(), "expired failures must not contribute to the threshold")
}

func TestBreaker_ResetClearsState(t *testing.T) {
	b := New("svc", Config{FailureThreshold: 1, SuccessThreshold: 1, OpenDuration: time.Hour, HalfOpenMaxRequests: 1, FailureWindow: time.Minute})
	_ = b.Execute(func() error { return errors.New("boom") })
	require.Equal(t, Open, b.State())

	b.Reset()
	assert.Equal(t, Closed, b.State())
	stats := b.Statistics()
	assert.Equal(t, 0, stats.CurrentFailureCount)
}

func TestBreaker_Statistics(t *testing.T) {
	b := New("svc", DefaultConfig())
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errors.New("x") })
	stats := b.Statistics()
	assert.EqualValues(t, 2, stats.TotalRequests)
	assert.EqualValues(t, 1, stats.Successful)
	assert.EqualValues(t, 1, stats.Failed)
	assert.InDelta(t, 0.5, stats.SuccessRate, 0.0001)
}

func TestBreaker_CancelledCallRecordsNoOutcome(t *testing.T) {
	b := New("storage", DefaultConfig())

	err := b.Execute(func() error { return gcperrors.NewCancelled() })
	require.ErrorIs(t, err, gcperrors.ErrCancelled)

	stats := b.Statistics()
	assert.Equal(t, Closed, stats.State)
	assert.EqualValues(t, 0, stats.Successful)
	assert.EqualValues(t, 0, stats.Failed)
}

func TestBreaker_CancelledHalfOpenProbeReleasesSlot(t *testing.T) {
	b := New("iam", Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		OpenDuration:        10 * time.Millisecond,
		HalfOpenMaxRequests: 1,
		FailureWindow:       time.Minute,
	})
	_ = b.Execute(func() error { return errors.New("boom") })
	require.Equal(t, Open, b.State())

	time.Sleep(20 * time.Millisecond)

	err := b.Execute(func() error { return gcperrors.NewCancelled() })
	require.ErrorIs(t, err, gcperrors.ErrCancelled)
	assert.Equal(t, HalfOpen, b.State(), "a cancelled probe must neither close nor reopen the circuit")

	// the cancelled probe must have released its half-open slot, so a
	// genuine probe can still be admitted.
	err = b.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, Closed, b.State())
}

func TestRegistry_GetOrCreateIsStable(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	b1 := r.Breaker("storage")
	b2 := r.Breaker("storage")
	assert.Same(t, b1, b2)
}

func TestRegistry_IsHealthyUnknownName(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	assert.True(t, r.IsHealthy("never-seen"))
}

func TestRegistry_OpenCircuitsAndResetAll(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, SuccessThreshold: 1, OpenDuration: time.Hour, HalfOpenMaxRequests: 1, FailureWindow: time.Minute})
	b := r.Breaker("storage")
	_ = b.Execute(func() error { return errors.New("boom") })

	assert.Equal(t, []string{"storage"}, r.OpenCircuits())
	assert.False(t, r.IsHealthy("storage"))

	r.ResetAll()
	assert.Empty(t, r.OpenCircuits())
	assert.True(t, r.IsHealthy("storage"))
}
