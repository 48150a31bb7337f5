// Package gcperrors holds the discriminated error taxonomy surfaced by the
// client runtime: AuthError from the credential/token layer, ApiError from
// the executor, and CircuitBreakerError from the breaker. Each variant
// implements error and RecoverySuggestion; AuthError and ApiError also
// implement Unwrap.
package gcperrors

import (
	"errors"
	"fmt"

	"github.com/GoCodeAlone/gcprest/jsonvalue"
)

// ErrCancelled is the sentinel an ApiError wraps when a call was aborted by
// caller cancellation, so callers can test with errors.Is(err, gcperrors.ErrCancelled).
var ErrCancelled = errors.New("gcprest: request cancelled")

// AuthKind discriminates an AuthError variant.
type AuthKind int

const (
	AuthInvalidCredentials AuthKind = iota
	AuthInvalidPrivateKey
	AuthTokenRequestFailed
	AuthHTTPError
	AuthNetworkError
)

// AuthError is returned by the Authenticator and credential validator.
type AuthError struct {
	Kind      AuthKind
	Message   string
	Status    int // set only for AuthHTTPError
	Body      string
	Err       error
	RequestID string // correlates to the token-exchange call that failed, if any
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case AuthHTTPError:
		return fmt.Sprintf("gcprest: auth: http %d: %s", e.Status, e.Message)
	default:
		if e.Err != nil {
			return fmt.Sprintf("gcprest: auth: %s: %v", e.Message, e.Err)
		}
		return fmt.Sprintf("gcprest: auth: %s", e.Message)
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// RecoverySuggestion returns a human-readable hint for resolving the error.
func (e *AuthError) RecoverySuggestion() string {
	switch e.Kind {
	case AuthInvalidCredentials:
		return "verify the service account JSON has all required fields populated"
	case AuthInvalidPrivateKey:
		return "verify the private_key field is a valid PKCS#8 PEM block"
	case AuthTokenRequestFailed:
		return "verify service account permissions and that the token endpoint is reachable"
	case AuthHTTPError:
		switch e.Status {
		case 401:
			return "verify service account permissions"
		case 403:
			return "verify the service account has the required IAM roles"
		default:
			return "inspect the token endpoint response body for details"
		}
	case AuthNetworkError:
		return "check network connectivity to the token endpoint"
	default:
		return "no recovery suggestion available"
	}
}

func NewInvalidCredentials(field string) *AuthError {
	return &AuthError{Kind: AuthInvalidCredentials, Message: fmt.Sprintf("invalid credentials: %s", field)}
}

func NewInvalidPrivateKey(msg string) *AuthError {
	return &AuthError{Kind: AuthInvalidPrivateKey, Message: msg}
}

func NewTokenRequestFailed(msg string) *AuthError {
	return &AuthError{Kind: AuthTokenRequestFailed, Message: msg}
}

func NewAuthHTTPError(status int, body string, requestID string) *AuthError {
	excerpt := body
	if len(excerpt) > 512 {
		excerpt = excerpt[:512]
	}
	return &AuthError{Kind: AuthHTTPError, Status: status, Body: excerpt, Message: fmt.Sprintf("token request rejected: %s", excerpt), RequestID: requestID}
}

func NewAuthNetworkError(err error) *AuthError {
	return &AuthError{Kind: AuthNetworkError, Message: "network error", Err: err}
}

// ApiKind discriminates an ApiError variant.
type ApiKind int

const (
	ApiRequestFailed ApiKind = iota
	ApiHTTPError
	ApiCancelled
	ApiTimeout
	ApiDecodingError
)

// GoogleCloudEnvelope mirrors the {error:{code,message,status,errors?}}
// structured error body Google Cloud APIs return.
type GoogleCloudEnvelope struct {
	Code    int              `json:"code"`
	Message string           `json:"message"`
	Status  string           `json:"status"`
	Errors  []jsonvalue.Value `json:"errors,omitempty"`
}

// ApiError is returned by the Executor.
type ApiError struct {
	Kind      ApiKind
	Message   string
	Status    int
	Envelope  *GoogleCloudEnvelope
	Seconds   float64 // set only for ApiTimeout
	Err       error
	RequestID string // the X-Request-Id sent with the failing call
}

func (e *ApiError) Error() string {
	switch e.Kind {
	case ApiHTTPError:
		if e.Envelope != nil && e.Envelope.Message != "" {
			return fmt.Sprintf("gcprest: api: http %d: %s", e.Status, e.Envelope.Message)
		}
		return fmt.Sprintf("gcprest: api: http %d", e.Status)
	case ApiCancelled:
		return "gcprest: api: cancelled"
	case ApiTimeout:
		return fmt.Sprintf("gcprest: api: timed out after %.1fs", e.Seconds)
	case ApiDecodingError:
		return fmt.Sprintf("gcprest: api: decoding error: %s", e.Message)
	default:
		if e.Err != nil {
			return fmt.Sprintf("gcprest: api: request failed: %v", e.Err)
		}
		return fmt.Sprintf("gcprest: api: request failed: %s", e.Message)
	}
}

func (e *ApiError) Unwrap() error {
	if e.Kind == ApiCancelled {
		return ErrCancelled
	}
	return e.Err
}

// Is lets errors.Is(err, ErrCancelled) match an ApiError of ApiCancelled
// kind even when Err is nil.
func (e *ApiError) Is(target error) bool {
	return e.Kind == ApiCancelled && target == ErrCancelled
}

// RecoverySuggestion returns a human-readable hint for resolving the error.
func (e *ApiError) RecoverySuggestion() string {
	switch e.Kind {
	case ApiHTTPError:
		switch e.Status {
		case 401:
			return "verify service account credentials"
		case 403:
			return "verify IAM permissions for the requested resource"
		case 429:
			return "reduce request rate or wait before retrying"
		default:
			if e.Status >= 500 {
				return "retry after a short delay; this is a server-side error"
			}
			return "check the request parameters against the API reference"
		}
	case ApiTimeout:
		return "increase the per-call timeout or check network latency"
	case ApiCancelled:
		return "the caller cancelled the request; no server-side action needed"
	case ApiDecodingError:
		return "the response body did not match the expected schema"
	default:
		return "check network connectivity and retry"
	}
}

func NewRequestFailed(err error) *ApiError {
	return &ApiError{Kind: ApiRequestFailed, Message: err.Error(), Err: err}
}

func NewHTTPError(status int, envelope *GoogleCloudEnvelope, requestID string) *ApiError {
	return &ApiError{Kind: ApiHTTPError, Status: status, Envelope: envelope, RequestID: requestID}
}

func NewCancelled() *ApiError {
	return &ApiError{Kind: ApiCancelled}
}

func NewTimeout(seconds float64) *ApiError {
	return &ApiError{Kind: ApiTimeout, Seconds: seconds}
}

func NewDecodingError(msg string) *ApiError {
	return &ApiError{Kind: ApiDecodingError, Message: msg}
}

// CircuitBreakerError is returned by CircuitBreaker.Execute when a call is
// rejected without being attempted.
type CircuitBreakerError struct {
	Service         string
	RemainingSeconds float64
	FailureCount    int
	TooManyFailures bool
}

func (e *CircuitBreakerError) Error() string {
	if e.TooManyFailures {
		return fmt.Sprintf("gcprest: circuit breaker %q: too many failures (%d)", e.Service, e.FailureCount)
	}
	return fmt.Sprintf("gcprest: circuit breaker %q open, retry in %.1fs", e.Service, e.RemainingSeconds)
}

// RecoverySuggestion returns a human-readable hint for resolving the error.
func (e *CircuitBreakerError) RecoverySuggestion() string {
	if e.TooManyFailures {
		return "investigate the failing service; the circuit opened after repeated failures"
	}
	return "wait for the circuit breaker's open period to elapse before retrying"
}

func NewCircuitOpen(service string, remaining float64) *CircuitBreakerError {
	return &CircuitBreakerError{Service: service, RemainingSeconds: remaining}
}

func NewTooManyFailures(service string, count int) *CircuitBreakerError {
	return &CircuitBreakerError{Service: service, FailureCount: count, TooManyFailures: true}
}
