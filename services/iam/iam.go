// Package iam is a thin wrapper over the IAM service account API.
package iam

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/gcprest/cache"
	"github.com/GoCodeAlone/gcprest/executor"
)

const scope = "https://www.googleapis.com/auth/iam"

// ServiceAccount is the subset of the IAM service account resource this
// client surfaces.
type ServiceAccount struct {
	Name        string `json:"name"`
	ProjectID   string `json:"projectId"`
	UniqueID    string `json:"uniqueId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Disabled    bool   `json:"disabled"`
}

type serviceAccountListResponse struct {
	Accounts []ServiceAccount `json:"accounts"`
}

// Client wraps an executor.Executor with the IAM API surface.
type Client struct {
	exec *executor.Executor
}

// New builds an iam Client over exec.
func New(exec *executor.Executor) *Client {
	return &Client{exec: exec}
}

// GetServiceAccount fetches a single service account by email or unique ID.
func (c *Client) GetServiceAccount(ctx context.Context, project, account string) (*ServiceAccount, error) {
	key, err := cache.NewKey("iam", "serviceaccount", project, account)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://iam.googleapis.com/v1/projects/%s/serviceAccounts/%s", project, account)

	v, err := c.exec.Do(ctx, executor.Request{
		Method: "GET", URL: url, Scope: scope, Service: "iam", CacheKey: &key,
		Decode: decodeServiceAccount,
	})
	if err != nil {
		return nil, err
	}
	return v.(*ServiceAccount), nil
}

// ListServiceAccounts lists all service accounts in a project.
func (c *Client) ListServiceAccounts(ctx context.Context, project string) ([]ServiceAccount, error) {
	key, err := cache.NewKey("iam", "serviceaccounts", project)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("https://iam.googleapis.com/v1/projects/%s/serviceAccounts", project)

	v, err := c.exec.Do(ctx, executor.Request{
		Method: "GET", URL: url, Scope: scope, Service: "iam", CacheKey: &key,
		Decode: decodeServiceAccountList,
	})
	if err != nil {
		return nil, err
	}
	return v.([]ServiceAccount), nil
}

func decodeServiceAccount(body []byte) (any, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(body, &sa); err != nil {
		return nil, err
	}
	return &sa, nil
}

func decodeServiceAccountList(body []byte) (any, error) {
	var resp serviceAccountListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}
