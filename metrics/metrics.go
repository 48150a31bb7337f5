// Package metrics wraps Prometheus metric vectors for the client runtime,
// grounded on the teacher's MetricsCollector (module/metrics.go), adapted
// from workflow-execution metrics to cache/breaker/executor outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus vectors the runtime updates.
type Collector struct {
	registry *prometheus.Registry

	CacheOperationsTotal   *prometheus.CounterVec
	CacheHitRatio          *prometheus.GaugeVec
	BreakerStateChanges    *prometheus.CounterVec
	BreakerRejectionsTotal *prometheus.CounterVec
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
	RetryAttemptsTotal     *prometheus.CounterVec
	TokenRefreshesTotal    *prometheus.CounterVec
}

// New creates a Collector with its own Prometheus registry.
func New() *Collector {
	reg := prometheus.NewRegistry()

	cacheOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcprest_cache_operations_total",
		Help: "Total cache operations by outcome",
	}, []string{"cache", "outcome"}) // outcome: hit|miss|set|evicted|expired|removed

	cacheHitRatio := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gcprest_cache_hit_ratio",
		Help: "Current cache hit ratio",
	}, []string{"cache"})

	breakerStateChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcprest_breaker_state_changes_total",
		Help: "Total circuit breaker state transitions",
	}, []string{"service", "state"})

	breakerRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcprest_breaker_rejections_total",
		Help: "Total calls rejected by an open circuit breaker",
	}, []string{"service"})

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcprest_requests_total",
		Help: "Total API requests by service and outcome",
	}, []string{"service", "method", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gcprest_request_duration_seconds",
		Help:    "Duration of API requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "method"})

	retryAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcprest_retry_attempts_total",
		Help: "Total retry attempts by service",
	}, []string{"service"})

	tokenRefreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcprest_token_refreshes_total",
		Help: "Total OAuth2 token refreshes by scope and outcome",
	}, []string{"scope", "outcome"})

	reg.MustRegister(
		cacheOps, cacheHitRatio, breakerStateChanges, breakerRejections,
		requestsTotal, requestDuration, retryAttempts, tokenRefreshes,
	)

	return &Collector{
		registry:               reg,
		CacheOperationsTotal:   cacheOps,
		CacheHitRatio:          cacheHitRatio,
		BreakerStateChanges:    breakerStateChanges,
		BreakerRejectionsTotal: breakerRejections,
		RequestsTotal:          requestsTotal,
		RequestDuration:        requestDuration,
		RetryAttemptsTotal:     retryAttempts,
		TokenRefreshesTotal:    tokenRefreshes,
	}
}

// Registry returns the underlying Prometheus registry, for wiring into a
// promhttp.Handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
