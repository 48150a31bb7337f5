package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/GoCodeAlone/gcprest/coalesce"
	"github.com/GoCodeAlone/gcprest/gcperrors"
	"github.com/GoCodeAlone/gcprest/secbuf"
)

// refreshSkew is how far ahead of hard expiry a token is treated as
// expired, so in-flight requests are never handed a token that expires
// mid-call.
const refreshSkew = 60 * time.Second

const grantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// AccessToken is a cached OAuth2 bearer token. The token bytes are held in
// a SecureBuffer; Bearer() returns them by string copy for use in an
// Authorization header, which the caller is responsible for not logging.
type AccessToken struct {
	bytes     *secbuf.Buffer
	TokenType string
	ExpiresAt time.Time
	Scope     string
}

// Bearer returns the token string.
func (t *AccessToken) Bearer() (string, error) {
	var s string
	err := t.bytes.WithUTF8(func(v string) { s = v })
	return s, err
}

// IsExpired reports whether the token should be treated as expired at
// now, applying the refresh skew.
func (t *AccessToken) IsExpired(now time.Time) bool {
	return now.Add(refreshSkew).After(t.ExpiresAt) || now.Add(refreshSkew).Equal(t.ExpiresAt)
}

// OAuth2Token converts t into the ecosystem-standard oauth2.Token shape,
// for callers that integrate with libraries built around golang.org/x/oauth2
// rather than this package's Bearer/IsExpired pair.
func (t *AccessToken) OAuth2Token() (*oauth2.Token, error) {
	raw, err := t.Bearer()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: raw,
		TokenType:   t.TokenType,
		Expiry:      t.ExpiresAt,
	}, nil
}

// Authenticator mints and caches OAuth2 bearer tokens per scope via the
// JWT-bearer grant, using a Coalescer to ensure concurrent refreshes for
// the same scope share one token-exchange call, grounded on the teacher's
// globalOAuthCache / oauthCacheEntry (module/pipeline_step_http_call.go).
type Authenticator struct {
	signer     *JWTSigner
	tokenURI   string
	httpClient *http.Client
	timeout    time.Duration

	mu     sync.Mutex
	tokens map[string]*AccessToken // keyed by scope

	coalescer *coalesce.Coalescer[scopeKey, *AccessToken]

	now func() time.Time
}

type scopeKey string

// NewAuthenticator builds an Authenticator for the given credential. If
// httpClient is nil, http.DefaultClient is used.
func NewAuthenticator(c *ServiceAccountCredential, httpClient *http.Client) (*Authenticator, error) {
	if err := ValidateCredential(c); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Authenticator{
		signer:     NewJWTSigner(c),
		tokenURI:   c.TokenURI,
		httpClient: httpClient,
		timeout:    30 * time.Second,
		tokens:     make(map[string]*AccessToken),
		coalescer:  coalesce.New[scopeKey, *AccessToken](),
		now:        time.Now,
	}, nil
}

// Token returns a valid bearer token for scope, refreshing it if absent
// or expired. Concurrent callers for the same scope share one refresh.
func (a *Authenticator) Token(ctx context.Context, scope string) (*AccessToken, error) {
	if tok, ok := a.cached(scope); ok {
		return tok, nil
	}

	tok, err := a.coalescer.Coalesce(scopeKey(scope), func() (*AccessToken, error) {
		if tok, ok := a.cached(scope); ok {
			return tok, nil
		}
		return a.refresh(ctx, scope)
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func (a *Authenticator) cached(scope string) (*AccessToken, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tok, ok := a.tokens[scope]
	if !ok || tok.IsExpired(a.now()) {
		return nil, false
	}
	return tok, true
}

func (a *Authenticator) store(scope string, tok *AccessToken) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[scope] = tok
}

// refresh performs the JWT-bearer token exchange protocol from spec.md
// §4.3.
func (a *Authenticator) refresh(ctx context.Context, scope string) (*AccessToken, error) {
	assertion, err := a.signer.Sign(scope)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", grantType)
	form.Set("assertion", assertion)

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, gcperrors.NewTokenRequestFailed(err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Request-Id", requestID)

	requestStart := a.now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, gcperrors.NewAuthNetworkError(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, gcperrors.NewAuthHTTPError(resp.StatusCode, string(body), requestID)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, gcperrors.NewTokenRequestFailed(fmt.Sprintf("malformed token response: %v", err))
	}

	tok := &AccessToken{
		bytes:     secbuf.FromString(payload.AccessToken),
		TokenType: payload.TokenType,
		ExpiresAt: requestStart.Add(time.Duration(payload.ExpiresIn) * time.Second),
		Scope:     scope,
	}
	a.store(scope, tok)
	return tok, nil
}

// HasInFlightRefresh reports whether a token refresh is currently in
// flight for scope, for diagnostics and tests.
func (a *Authenticator) HasInFlightRefresh(scope string) bool {
	return a.coalescer.HasInFlight(scopeKey(scope))
}

// Close zeroizes the signer's key material and all cached token bytes.
func (a *Authenticator) Close() {
	a.signer.Close()
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, tok := range a.tokens {
		tok.bytes.Clear()
	}
}
