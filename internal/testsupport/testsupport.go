// Package testsupport holds fixtures shared by the service wrapper tests:
// a disposable service-account credential, a stub OAuth2 token server, and
// an http.RoundTripper that redirects every request to a local httptest
// server regardless of the host/scheme the service client hardcodes.
package testsupport

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/gcprest/auth"
)

// TestCredential generates a throwaway RSA service-account credential
// pointed at tokenURI.
func TestCredential(t *testing.T, tokenURI string) *auth.ServiceAccountCredential {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	return &auth.ServiceAccountCredential{
		Type:         "service_account",
		ProjectID:    "test-project",
		PrivateKeyID: "key-123",
		PrivateKey:   string(pemBytes),
		ClientEmail:  "test@test-project.iam.gserviceaccount.com",
		ClientID:     "1234567890",
		AuthURI:      "https://accounts.google.com/o/oauth2/auth",
		TokenURI:     tokenURI,
	}
}

// TokenServer starts a stub OAuth2 token endpoint that always returns a
// fixed bearer token.
func TokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	}))
}

// NewAuthenticator builds an Authenticator whose token endpoint is a
// TokenServer, using tokSrv's own client for the token exchange. API calls
// under test go through the executor's transport (see RedirectTransport),
// not this client.
func NewAuthenticator(t *testing.T, tokSrv *httptest.Server) *auth.Authenticator {
	t.Helper()
	cred := TestCredential(t, tokSrv.URL)
	a, err := auth.NewAuthenticator(cred, tokSrv.Client())
	require.NoError(t, err)
	return a
}

// RedirectTransport returns an http.Client whose RoundTripper rewrites
// every outgoing request's scheme and host to target's, so a service
// wrapper built against a real Google Cloud hostname can be driven against
// a local httptest.Server.
func RedirectTransport(target string) *http.Client {
	targetURL, err := url.Parse(target)
	if err != nil {
		panic(err)
	}
	return &http.Client{
		Transport: redirectRoundTripper{target: targetURL, base: http.DefaultTransport},
	}
}

type redirectRoundTripper struct {
	target *url.URL
	base   http.RoundTripper
}

func (rt redirectRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	req.Host = rt.target.Host
	return rt.base.RoundTrip(req)
}
