package logging

import (
	"context"
	"io"
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

func TestClient_WriteLogEntries(t *testing.T) {
	var gotBody []byte
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/entries:write", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer apiSrv.Close()

	client := newTestClient(t, apiSrv)
	err := client.WriteLogEntries(context.Background(), "projects/proj/logs/my-log", map[string]any{"type": "global"}, []Entry{
		{LogName: "projects/proj/logs/my-log", Severity: "INFO", TextPayload: "hello"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(gotBody), "hello")
}

func TestClient_ListLogEntries(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/entries:list", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entries":[{"logName":"projects/proj/logs/my-log","severity":"ERROR","textPayload":"boom"}]}`))
	}))
	defer apiSrv.Close()

	client := newTestClient(t, apiSrv)
	entries, err := client.ListLogEntries(context.Background(), []string{"projects/proj"}, "severity>=ERROR", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].TextPayload)
}
