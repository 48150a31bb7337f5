// Package executor threads the Authenticator, ResponseCache, CircuitBreaker,
// and RetryPolicy together into a single request pipeline, grounded on the
// teacher's doRequest/Execute style (provider/gcp/plugin.go,
// module/pipeline_step_http_call.go) and generalized per spec.md §4.8.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/GoCodeAlone/gcprest/auth"
	"github.com/GoCodeAlone/gcprest/breaker"
	"github.com/GoCodeAlone/gcprest/cache"
	"github.com/GoCodeAlone/gcprest/gcperrors"
	"github.com/GoCodeAlone/gcprest/metrics"
	"github.com/GoCodeAlone/gcprest/retry"
)

// Doer is the minimal HTTP transport interface the executor depends on,
// satisfied by *http.Client and test doubles alike.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes a single API call.
type Request struct {
	Method   string
	URL      string
	Body     any // JSON-encoded if non-nil
	Scope    string
	Service  string // circuit breaker name, e.g. "storage"
	CacheKey *cache.Key
	Decode   func(body []byte) (any, error) // nil means discard the body
}

// Executor composes authentication, caching, circuit breaking, and retry
// into the single call flow described in spec.md §2.
type Executor struct {
	transport   Doer
	authn       *auth.Authenticator
	breakers    *breaker.Registry
	respCache   *cache.ResponseCache[any]
	retryPolicy retry.Policy
	metrics     *metrics.Collector

	limiters map[string]*rate.Limiter
	sleep    func(context.Context, time.Duration) error
	now      func() time.Time
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(e *Executor) { e.retryPolicy = p }
}

// WithMetrics attaches a metrics.Collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithRateLimit installs a per-service token-bucket limiter.
func WithRateLimit(service string, rps float64, burst int) Option {
	return func(e *Executor) {
		if e.limiters == nil {
			e.limiters = make(map[string]*rate.Limiter)
		}
		e.limiters[service] = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New builds an Executor from its required collaborators.
func New(transport Doer, authn *auth.Authenticator, breakers *breaker.Registry, respCache *cache.ResponseCache[any], opts ...Option) *Executor {
	e := &Executor{
		transport:   transport,
		authn:       authn,
		breakers:    breakers,
		respCache:   respCache,
		retryPolicy: retry.Default(),
		now:         time.Now,
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs req through the full pipeline: breaker preflight, auth, optional
// cache, retrying HTTP send, and breaker outcome recording.
func (e *Executor) Do(ctx context.Context, req Request) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, gcperrors.NewCancelled()
	}

	var cb *breaker.CircuitBreaker
	if req.Service != "" && e.breakers != nil {
		cb = e.breakers.Breaker(req.Service)
	}

	send := func() (any, error) {
		return e.sendWithRetry(ctx, req)
	}

	run := func() (any, error) {
		if req.CacheKey != nil && e.respCache != nil {
			return e.respCache.GetOrFetch(*req.CacheKey, send)
		}
		return send()
	}

	if cb == nil {
		return run()
	}

	var result any
	err := cb.Execute(func() error {
		v, err := run()
		result = v
		return err
	})
	if e.metrics != nil {
		e.recordBreakerMetrics(req.Service, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Executor) recordBreakerMetrics(service string, err error) {
	var cbErr *gcperrors.CircuitBreakerError
	if errors.As(err, &cbErr) {
		e.metrics.BreakerRejectionsTotal.WithLabelValues(service).Inc()
	}
}

// sendWithRetry performs the authenticated HTTP request loop described in
// spec.md §4.8 step 4.
func (e *Executor) sendWithRetry(ctx context.Context, req Request) (any, error) {
	if limiter, ok := e.limiters[req.Service]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return nil, gcperrors.NewCancelled()
		}
	}

	var lastErr error
	for attempt := 0; attempt <= e.retryPolicy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, gcperrors.NewCancelled()
		}

		result, status, err := e.attempt(ctx, req)
		if err == nil {
			return result, nil
		}

		if apiErr, ok := err.(*gcperrors.ApiError); ok && apiErr.Kind == gcperrors.ApiCancelled {
			return nil, err
		}

		retryable := status != 0 && retry.IsRetryable(status)
		transportError := status == 0
		if (retryable || transportError) && attempt < e.retryPolicy.MaxRetries {
			lastErr = err
			if e.metrics != nil {
				e.metrics.RetryAttemptsTotal.WithLabelValues(req.Service).Inc()
			}
			delay := e.retryPolicy.Delay(attempt)
			if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
				return nil, gcperrors.NewCancelled()
			}
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, gcperrors.NewRequestFailed(fmt.Errorf("retries exhausted"))
}

// attempt issues a single HTTP call. It returns the HTTP status code when
// the request reached the server, and 0 when no response was received:
// transport failures as well as failures before the send (token fetch,
// body encoding, request construction). The caller classifies
// retryability from this status and treats 0 as a transport failure.
func (e *Executor) attempt(ctx context.Context, req Request) (any, int, error) {
	requestID := uuid.NewString()

	tok, err := e.authn.Token(ctx, req.Scope)
	if err != nil {
		return nil, 0, mapAuthError(err, requestID)
	}
	bearer, err := tok.Bearer()
	if err != nil {
		return nil, 0, gcperrors.NewRequestFailed(err)
	}

	var bodyReader io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, 0, gcperrors.NewDecodingError("failed to encode request body: " + err.Error())
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, 0, gcperrors.NewRequestFailed(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Request-Id", requestID)

	resp, err := e.transport.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, gcperrors.NewCancelled()
		}
		return nil, 0, gcperrors.NewRequestFailed(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 10<<20))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if req.Decode == nil {
			return nil, resp.StatusCode, nil
		}
		v, err := req.Decode(body)
		if err != nil {
			return nil, resp.StatusCode, gcperrors.NewDecodingError(err.Error())
		}
		return v, resp.StatusCode, nil
	}

	envelope := parseEnvelope(body)
	return nil, resp.StatusCode, gcperrors.NewHTTPError(resp.StatusCode, envelope, requestID)
}

func parseEnvelope(body []byte) *gcperrors.GoogleCloudEnvelope {
	var wrapper struct {
		Error gcperrors.GoogleCloudEnvelope `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil
	}
	if wrapper.Error.Message == "" && wrapper.Error.Code == 0 {
		return nil
	}
	return &wrapper.Error
}

func mapAuthError(err error, requestID string) error {
	if authErr, ok := err.(*gcperrors.AuthError); ok {
		return gcperrors.NewHTTPError(authErr.Status, &gcperrors.GoogleCloudEnvelope{Message: authErr.Message}, requestID)
	}
	return gcperrors.NewRequestFailed(err)
}
