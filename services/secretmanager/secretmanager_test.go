package secretmanager

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/gcprest/breaker"
	"github.com/GoCodeAlone/gcprest/cache"
	"github.com/GoCodeAlone/gcprest/executor"
	"github.com/GoCodeAlone/gcprest/internal/testsupport"
)

func newTestClient(t *testing.T, apiSrv *httptest.Server) *Client {
	t.Helper()
	tokSrv := testsupport.TokenServer(t)
	t.Cleanup(tokSrv.Close)
	a := testsupport.NewAuthenticator(t, tokSrv)

	exec := executor.New(
		testsupport.RedirectTransport(apiSrv.URL),
		a,
		breaker.NewRegistry(breaker.DefaultConfig()),
		cache.NewResponseCache[any](cache.DefaultConfig()),
	)
	return New(exec)
}

func TestClient_GetSecret(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"projects/proj/secrets/my-secret"}`))
	}))
	defer apiSrv.Close()

	client := newTestClient(t, apiSrv)
	s, err := client.GetSecret(context.Background(), "proj", "my-secret")
	require.NoError(t, err)
	assert.Equal(t, "projects/proj/secrets/my-secret", s.Name)
}

func TestClient_AccessSecretVersion(t *testing.T) {
	plaintext := "super-secret-value"
	encoded := base64.StdEncoding.EncodeToString([]byte(plaintext))

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"name":"projects/proj/secrets/my-secret/versions/1","payload":{"data":%q}}`, encoded)
	}))
	defer apiSrv.Close()

	client := newTestClient(t, apiSrv)
	payload, err := client.AccessSecretVersion(context.Background(), "proj", "my-secret", "1")
	require.NoError(t, err)
	assert.Equal(t, plaintext, string(payload.Data))
}
