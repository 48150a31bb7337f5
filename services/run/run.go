// Package run is a thin wrapper over the Cloud Run v2 API, reusing the
// resource shapes the teacher's provider/gcp/plugin.go already decodes
// (cloudRunService/cloudRunCondition), generalized into a typed client
// instead of a single deploy-status mapper.
package run

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/gcprest/cache"
	"github.com/GoCodeAlone/gcprest/executor"
)

const scope = "https://www.googleapis.com/auth/cloud-platform"

// Condition is a Cloud Run v2 service condition.
type Condition struct {
	Type    string `json:"type"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// Service is the subset of the Cloud Run v2 service resource this client
// surfaces.
type Service struct {
	Name                  string      `json:"name"`
	UID                   string      `json:"uid"`
	Generation            int64       `json:"generation"`
	Conditions            []Condition `json:"conditions"`
	LatestCreatedRevision string      `json:"latestCreatedRevision"`
	LatestReadyRevision   string      `json:"latestReadyRevision"`
}

type serviceListResponse struct {
	Services []Service `json:"services"`
}

// Client wraps an executor.Executor with the Cloud Run v2 API surface.
type Client struct {
	exec *executor.Executor
}

// New builds a run Client over exec.
func New(exec *executor.Executor) *Client {
	return &Client{exec: exec}
}

// GetService fetches a single Cloud Run service. name must be the full
// resource name: "projects/{project}/locations/{region}/services/{service}".
func (c *Client) GetService(ctx context.Context, name string) (*Service, error) {
	key, err := cache.NewKey("run", "service", name)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://run.googleapis.com/v2/%s", name)

	v, err := c.exec.Do(ctx, executor.Request{
		Method: "GET", URL: url, Scope: scope, Service: "run", CacheKey: &key,
		Decode: decodeService,
	})
	if err != nil {
		return nil, err
	}
	return v.(*Service), nil
}

// ListServices lists Cloud Run services in a project/region. parent must
// be "projects/{project}/locations/{region}".
func (c *Client) ListServices(ctx context.Context, parent string) ([]Service, error) {
	key, err := cache.NewKey("run", "services", parent)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://run.googleapis.com/v2/%s/services", parent)

	v, err := c.exec.Do(ctx, executor.Request{
		Method: "GET", URL: url, Scope: scope, Service: "run", CacheKey: &key,
		Decode: decodeServiceList,
	})
	if err != nil {
		return nil, err
	}
	return v.([]Service), nil
}

// ReadyRevision returns the ready state as reported by the service's
// "Ready" condition, mirroring the teacher's cloudRunServiceToDeployStatus
// mapping.
func (s *Service) ReadyRevision() (state, message string) {
	for _, c := range s.Conditions {
		if c.Type == "Ready" {
			return c.State, c.Message
		}
	}
	return "", ""
}

func decodeService(body []byte) (any, error) {
	var s Service
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeServiceList(body []byte) (any, error) {
	var resp serviceListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Services, nil
}
