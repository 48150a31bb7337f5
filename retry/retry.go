// Package retry implements the exponential-backoff-with-jitter delay
// computation and retryable-status classification used by the executor,
// generalizing the teacher's RetryWithBackoffStep
// (module/pipeline_step_resilience.go) into a standalone, reusable
// policy type.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Policy configures retry behavior.
type Policy struct {
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64 // in [0,1]; 0 disables jitter

	// randFloat returns a uniform value in [0,1); overridable in tests for
	// determinism.
	randFloat func() float64
}

// Default returns the "default" preset from spec.md §4.7: 3 retries, 1s
// base delay, 30s max delay, 0.2 jitter factor.
func Default() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second, JitterFactor: 0.2}
}

// None returns a policy with no retries; the transport still executes
// once.
func None() Policy {
	return Policy{MaxRetries: 0, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

func (p Policy) rand() float64 {
	if p.randFloat != nil {
		return p.randFloat()
	}
	return rand.Float64()
}

// Delay returns the backoff delay before retry attempt number attempt
// (0-indexed): min(baseDelay * 2^attempt, maxDelay), scaled by a uniform
// jitter factor in [1-jitterFactor/2, 1+jitterFactor/2] when JitterFactor
// is nonzero.
func (p Policy) Delay(attempt int) time.Duration {
	base := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	max := float64(p.MaxDelay)
	d := base
	if d > max {
		d = max
	}
	if p.JitterFactor > 0 {
		lo := 1 - p.JitterFactor/2
		scale := lo + p.rand()*p.JitterFactor
		d *= scale
		if d > max {
			d = max
		}
	}
	return time.Duration(d)
}

var retryableStatus = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// IsRetryable reports whether an HTTP status code should be retried.
func IsRetryable(statusCode int) bool {
	return retryableStatus[statusCode]
}
