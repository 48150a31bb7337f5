package gcperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApiError_IsCancelled(t *testing.T) {
	err := NewCancelled()
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Equal(t, "gcprest: api: cancelled", err.Error())
}

func TestApiError_RecoverySuggestion(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{401, "verify service account credentials"},
		{403, "verify IAM permissions for the requested resource"},
		{429, "reduce request rate or wait before retrying"},
		{503, "retry after a short delay; this is a server-side error"},
	}
	for _, c := range cases {
		err := NewHTTPError(c.status, nil, "req-1")
		assert.Equal(t, c.want, err.RecoverySuggestion())
	}
}

func TestAuthError_RecoverySuggestion(t *testing.T) {
	assert.Contains(t, NewAuthHTTPError(401, "", "req-1").RecoverySuggestion(), "permissions")
	assert.Contains(t, NewAuthNetworkError(errors.New("dial tcp")).RecoverySuggestion(), "network")
}

func TestCircuitBreakerError(t *testing.T) {
	err := NewCircuitOpen("storage", 1.5)
	assert.Contains(t, err.Error(), "storage")
	assert.Contains(t, err.Error(), "1.5")

	err2 := NewTooManyFailures("compute", 7)
	assert.Contains(t, err2.Error(), "too many failures")
}

func TestHTTPErrorPrefersEnvelopeMessage(t *testing.T) {
	err := NewHTTPError(400, &GoogleCloudEnvelope{Code: 400, Message: "bucket not found", Status: "NOT_FOUND"}, "req-1")
	assert.Contains(t, err.Error(), "bucket not found")
}
