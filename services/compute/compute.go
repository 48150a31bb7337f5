// Package compute is a thin wrapper over the Compute Engine API.
package compute

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/gcprest/cache"
	"github.com/GoCodeAlone/gcprest/executor"
)

const scope = "https://www.googleapis.com/auth/compute.readonly"

// Instance is the subset of the Compute Engine instance resource this
// client surfaces.
type Instance struct {
	Name        string `json:"name"`
	Zone        string `json:"zone"`
	Status      string `json:"status"`
	MachineType string `json:"machineType"`
}

type instanceListResponse struct {
	Items []Instance `json:"items"`
}

// Client wraps an executor.Executor with the Compute Engine API surface.
type Client struct {
	exec *executor.Executor
}

// New builds a compute Client over exec.
func New(exec *executor.Executor) *Client {
	return &Client{exec: exec}
}

// GetInstance fetches metadata for a single instance.
func (c *Client) GetInstance(ctx context.Context, project, zone, instance string) (*Instance, error) {
	key, err := cache.NewKey("compute", "instance", project, zone, instance)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://compute.googleapis.com/compute/v1/projects/%s/zones/%s/instances/%s", project, zone, instance)

	v, err := c.exec.Do(ctx, executor.Request{
		Method: "GET", URL: url, Scope: scope, Service: "compute", CacheKey: &key,
		Decode: decodeInstance,
	})
	if err != nil {
		return nil, err
	}
	return v.(*Instance), nil
}

// ListInstances lists all instances in a zone.
func (c *Client) ListInstances(ctx context.Context, project, zone string) ([]Instance, error) {
	key, err := cache.NewKey("compute", "instances", project, zone)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://compute.googleapis.com/compute/v1/projects/%s/zones/%s/instances", project, zone)

	v, err := c.exec.Do(ctx, executor.Request{
		Method: "GET", URL: url, Scope: scope, Service: "compute", CacheKey: &key,
		Decode: decodeInstanceList,
	})
	if err != nil {
		return nil, err
	}
	return v.([]Instance), nil
}

func decodeInstance(body []byte) (any, error) {
	var i Instance
	if err := json.Unmarshal(body, &i); err != nil {
		return nil, err
	}
	return &i, nil
}

func decodeInstanceList(body []byte) (any, error) {
	var resp instanceListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}
