// Package storage is a thin wrapper over the Cloud Storage JSON API,
// grounded on the teacher's doRequest/decode style in provider/gcp/plugin.go.
// It carries no retry/cache/breaker logic of its own — all of that lives in
// executor.Executor, per spec.md's "public service-facing wrappers" boundary.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/gcprest/cache"
	"github.com/GoCodeAlone/gcprest/executor"
)

const scope = "https://www.googleapis.com/auth/devstorage.read_only"

// Bucket is the subset of the Cloud Storage bucket resource this client
// surfaces.
type Bucket struct {
	Name         string `json:"name"`
	Location     string `json:"location"`
	StorageClass string `json:"storageClass"`
	TimeCreated  string `json:"timeCreated"`
}

// Object is the subset of the Cloud Storage object resource this client
// surfaces.
type Object struct {
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Size        string `json:"size"`
	ContentType string `json:"contentType"`
	Updated     string `json:"updated"`
}

type objectListResponse struct {
	Items []Object `json:"items"`
}

// Client wraps an executor.Executor with the Cloud Storage JSON API
// surface.
type Client struct {
	exec *executor.Executor
}

// New builds a storage Client over exec.
func New(exec *executor.Executor) *Client {
	return &Client{exec: exec}
}

// GetBucket fetches metadata for the named bucket.
func (c *Client) GetBucket(ctx context.Context, bucket string) (*Bucket, error) {
	key, err := cache.NewKey("storage", "bucket", bucket)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://storage.googleapis.com/storage/v1/b/%s", bucket)

	v, err := c.exec.Do(ctx, executor.Request{
		Method:   "GET",
		URL:      url,
		Scope:    scope,
		Service:  "storage",
		CacheKey: &key,
		Decode:   decodeBucket,
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bucket), nil
}

// ListObjects lists objects in the named bucket.
func (c *Client) ListObjects(ctx context.Context, bucket string) ([]Object, error) {
	key, err := cache.NewKey("storage", "objects", bucket)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://storage.googleapis.com/storage/v1/b/%s/o", bucket)

	v, err := c.exec.Do(ctx, executor.Request{
		Method:   "GET",
		URL:      url,
		Scope:    scope,
		Service:  "storage",
		CacheKey: &key,
		Decode:   decodeObjectList,
	})
	if err != nil {
		return nil, err
	}
	return v.([]Object), nil
}

func decodeBucket(body []byte) (any, error) {
	var b Bucket
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func decodeObjectList(body []byte) (any, error) {
	var resp objectListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
