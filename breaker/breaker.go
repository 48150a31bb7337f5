// Package breaker implements a per-service circuit breaker with a
// three-state lifecycle (Closed/Open/HalfOpen) and a sliding failure
// window, generalizing the teacher's middleware/circuit_breaker.go (which
// tracks a simple consecutive-failure counter) to a time-windowed ring of
// failure timestamps per spec.md §4.6.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/GoCodeAlone/gcprest/gcperrors"
)

// State is one of Closed, Open, HalfOpen.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config parameterizes a CircuitBreaker.
type Config struct {
	FailureThreshold    int
	SuccessThreshold    int
	OpenDuration        time.Duration
	HalfOpenMaxRequests int
	FailureWindow       time.Duration
}

// DefaultConfig returns the "default" preset from spec.md §4.6.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    3,
		OpenDuration:        30 * time.Second,
		HalfOpenMaxRequests: 1,
		FailureWindow:       60 * time.Second,
	}
}

// AggressiveConfig returns the "aggressive" preset: trips sooner, recovers
// with fewer successes, cools down faster.
func AggressiveConfig() Config {
	return Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		OpenDuration:        15 * time.Second,
		HalfOpenMaxRequests: 1,
		FailureWindow:       60 * time.Second,
	}
}

// ConservativeConfig returns the "conservative" preset: tolerates more
// failures before tripping and waits longer to probe again.
func ConservativeConfig() Config {
	return Config{
		FailureThreshold:    10,
		SuccessThreshold:    5,
		OpenDuration:        60 * time.Second,
		HalfOpenMaxRequests: 1,
		FailureWindow:       60 * time.Second,
	}
}

// Stats is a snapshot of a CircuitBreaker's counters.
type Stats struct {
	Name                string
	State               State
	TotalRequests       int64
	Successful          int64
	Failed              int64
	Rejected            int64
	CurrentFailureCount int
	SuccessRate         float64
}

// CircuitBreaker tracks per-service failures within a sliding window and
// gates calls through Execute according to the state table in spec.md
// §4.6.
type CircuitBreaker struct {
	name string
	cfg  Config

	mu                  sync.Mutex
	state               State
	failureTimestamps   []time.Time // ring of recent failures, oldest first
	successesInHalfOpen int
	openedAt            time.Time
	halfOpenInFlight    int

	totalRequests, successful, failed, rejected int64

	now func() time.Time
}

// New creates a CircuitBreaker named name with cfg.
func New(name string, cfg Config) *CircuitBreaker {
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{name: name, cfg: cfg, state: Closed, now: time.Now}
}

// Name returns the breaker's service name.
func (b *CircuitBreaker) Name() string { return b.name }

// State returns the current state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn under the breaker's gating rules. If the call is
// rejected without running fn, Execute returns a *gcperrors.CircuitBreakerError.
// A caller-cancelled fn (errors.Is(err, gcperrors.ErrCancelled)) records no
// outcome at all: a cancellation is neither a success nor a failure, per
// spec.
func (b *CircuitBreaker) Execute(fn func() error) error {
	if err := b.allowRequest(); err != nil {
		return err
	}
	err := fn()
	if errors.Is(err, gcperrors.ErrCancelled) {
		b.release()
		return err
	}
	b.recordOutcome(err)
	return err
}

// release undoes allowRequest's half-open admission bookkeeping without
// recording a success or failure, for calls that were cancelled before
// they could complete.
func (b *CircuitBreaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}
}

// allowRequest applies the preflight gating rules and, if the call is
// admitted, marks bookkeeping (half-open in-flight count) needed to
// correctly gate subsequent concurrent calls.
func (b *CircuitBreaker) allowRequest() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.totalRequests++

	switch b.state {
	case Closed:
		return nil

	case Open:
		if now.Before(b.openedAt.Add(b.cfg.OpenDuration)) {
			remaining := b.openedAt.Add(b.cfg.OpenDuration).Sub(now).Seconds()
			b.rejected++
			return gcperrors.NewCircuitOpen(b.name, remaining)
		}
		b.state = HalfOpen
		b.halfOpenInFlight = 0
		b.successesInHalfOpen = 0
		fallthrough

	case HalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxRequests {
			b.rejected++
			return gcperrors.NewCircuitOpen(b.name, 0)
		}
		b.halfOpenInFlight++
		return nil
	}
	return nil
}

// recordOutcome updates state after fn has run. err is fn's return value;
// nil means success.
func (b *CircuitBreaker) recordOutcome(err error) {
	if err != nil {
		b.RecordFailure()
		return
	}
	b.RecordSuccess()
}

// RecordSuccess records a successful outcome, independent of Execute, for
// callers that perform the preflight/outcome split manually.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.successful++

	switch b.state {
	case HalfOpen:
		b.halfOpenInFlight--
		if b.halfOpenInFlight < 0 {
			b.halfOpenInFlight = 0
		}
		b.successesInHalfOpen++
		if b.successesInHalfOpen >= b.cfg.SuccessThreshold {
			b.transitionToClosed()
		}
	case Closed:
		// successes do not clear the failure ring; window expiry handles that.
	}
}

// RecordFailure records a failed outcome.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed++
	now := b.now()

	switch b.state {
	case HalfOpen:
		b.halfOpenInFlight--
		if b.halfOpenInFlight < 0 {
			b.halfOpenInFlight = 0
		}
		b.transitionToOpen(now)

	case Closed:
		b.failureTimestamps = append(b.failureTimestamps, now)
		if b.currentFailureCountLocked(now) >= b.cfg.FailureThreshold {
			b.transitionToOpen(now)
		}
	}
}

func (b *CircuitBreaker) transitionToOpen(now time.Time) {
	b.state = Open
	b.openedAt = now
	b.halfOpenInFlight = 0
	b.successesInHalfOpen = 0
}

func (b *CircuitBreaker) transitionToClosed() {
	b.state = Closed
	b.failureTimestamps = nil
	b.successesInHalfOpen = 0
	b.halfOpenInFlight = 0
}

// currentFailureCountLocked prunes timestamps older than FailureWindow and
// returns the remaining count. Caller must hold b.mu.
func (b *CircuitBreaker) currentFailureCountLocked(now time.Time) int {
	cutoff := now.Add(-b.cfg.FailureWindow)
	kept := b.failureTimestamps[:0]
	for _, ts := range b.failureTimestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.failureTimestamps = kept
	return len(kept)
}

// Trip forces the breaker Open immediately.
func (b *CircuitBreaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionToOpen(b.now())
}

// Reset forces the breaker Closed and clears the failure window and
// half-open bookkeeping. The cumulative counters reported by Statistics
// (total, successful, failed, rejected) are kept.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionToClosed()
}

// Statistics returns a snapshot of the breaker's counters.
func (b *CircuitBreaker) Statistics() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	var rate float64
	if total := b.successful + b.failed; total > 0 {
		rate = float64(b.successful) / float64(total)
	}
	return Stats{
		Name:                b.name,
		State:               b.state,
		TotalRequests:       b.totalRequests,
		Successful:          b.successful,
		Failed:              b.failed,
		Rejected:            b.rejected,
		CurrentFailureCount: b.currentFailureCountLocked(b.now()),
		SuccessRate:         rate,
	}
}
