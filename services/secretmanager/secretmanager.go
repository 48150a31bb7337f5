// Package secretmanager is a thin wrapper over the Secret Manager API.
package secretmanager

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/gcprest/cache"
	"github.com/GoCodeAlone/gcprest/executor"
)

const scope = "https://www.googleapis.com/auth/cloud-platform"

// Secret is the subset of the Secret Manager secret resource this client
// surfaces.
type Secret struct {
	Name        string            `json:"name"`
	Labels      map[string]string `json:"labels,omitempty"`
	CreateTime  string            `json:"createTime"`
}

// SecretPayload holds a decoded secret version payload. Data is the
// decoded plaintext bytes, not the base64 the API returns on the wire.
type SecretPayload struct {
	Name string
	Data []byte
}

type accessSecretVersionResponse struct {
	Name    string `json:"name"`
	Payload struct {
		Data string `json:"data"`
	} `json:"payload"`
}

// Client wraps an executor.Executor with the Secret Manager API surface.
type Client struct {
	exec *executor.Executor
}

// New builds a secretmanager Client over exec.
func New(exec *executor.Executor) *Client {
	return &Client{exec: exec}
}

// GetSecret fetches metadata for a secret (not its payload).
func (c *Client) GetSecret(ctx context.Context, project, secret string) (*Secret, error) {
	key, err := cache.NewKey("secretmanager", "secret", project, secret)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://secretmanager.googleapis.com/v1/projects/%s/secrets/%s", project, secret)

	v, err := c.exec.Do(ctx, executor.Request{
		Method: "GET", URL: url, Scope: scope, Service: "secretmanager", CacheKey: &key,
		Decode: decodeSecret,
	})
	if err != nil {
		return nil, err
	}
	return v.(*Secret), nil
}

// AccessSecretVersion fetches and decodes a secret version's payload.
// Secret payloads are never cached: a cache key here would persist
// sensitive plaintext in process memory beyond its useful lifetime.
func (c *Client) AccessSecretVersion(ctx context.Context, project, secret, version string) (*SecretPayload, error) {
	url := fmt.Sprintf("https://secretmanager.googleapis.com/v1/projects/%s/secrets/%s/versions/%s:access", project, secret, version)

	v, err := c.exec.Do(ctx, executor.Request{
		Method: "GET", URL: url, Scope: scope, Service: "secretmanager",
		Decode: decodeSecretVersion,
	})
	if err != nil {
		return nil, err
	}
	return v.(*SecretPayload), nil
}

func decodeSecret(body []byte) (any, error) {
	var s Secret
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeSecretVersion(body []byte) (any, error) {
	var resp accessSecretVersionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return nil, fmt.Errorf("secretmanager: malformed payload data: %w", err)
	}
	return &SecretPayload{Name: resp.Name, Data: data}, nil
}
