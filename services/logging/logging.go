// Package logging is a thin wrapper over the Cloud Logging API. It is
// unrelated to the runtime's own gcprest/logging package (slog helpers for
// the client's own diagnostic output) — this package writes and reads
// Cloud Logging log entries.
package logging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/gcprest/executor"
)

const scope = "https://www.googleapis.com/auth/logging.write"

// Entry is a single Cloud Logging log entry.
type Entry struct {
	LogName   string         `json:"logName"`
	Severity  string         `json:"severity"`
	Timestamp string         `json:"timestamp,omitempty"`
	TextPayload string       `json:"textPayload,omitempty"`
	JSONPayload map[string]any `json:"jsonPayload,omitempty"`
}

type writeLogEntriesRequest struct {
	LogName  string            `json:"logName"`
	Resource map[string]any    `json:"resource"`
	Entries  []Entry           `json:"entries"`
	Labels   map[string]string `json:"labels,omitempty"`
}

type listLogEntriesRequest struct {
	ResourceNames []string `json:"resourceNames"`
	Filter        string   `json:"filter,omitempty"`
	PageSize      int      `json:"pageSize,omitempty"`
}

type listLogEntriesResponse struct {
	Entries []Entry `json:"entries"`
}

// Client wraps an executor.Executor with the Cloud Logging API surface.
// Writes and reads are never cached: log entries are append-only events,
// not idempotent lookups.
type Client struct {
	exec *executor.Executor
}

// New builds a logging Client over exec.
func New(exec *executor.Executor) *Client {
	return &Client{exec: exec}
}

// WriteLogEntries writes a batch of entries under logName.
func (c *Client) WriteLogEntries(ctx context.Context, logName string, resource map[string]any, entries []Entry) error {
	body := writeLogEntriesRequest{LogName: logName, Resource: resource, Entries: entries}

	_, err := c.exec.Do(ctx, executor.Request{
		Method:  "POST",
		URL:     "https://logging.googleapis.com/v2/entries:write",
		Body:    body,
		Scope:   scope,
		Service: "logging",
		Decode:  decodeEmpty,
	})
	return err
}

// ListLogEntries lists entries matching filter within the given resource
// names (e.g. "projects/my-project").
func (c *Client) ListLogEntries(ctx context.Context, resourceNames []string, filter string, pageSize int) ([]Entry, error) {
	body := listLogEntriesRequest{ResourceNames: resourceNames, Filter: filter, PageSize: pageSize}

	v, err := c.exec.Do(ctx, executor.Request{
		Method:  "POST",
		URL:     "https://logging.googleapis.com/v2/entries:list",
		Body:    body,
		Scope:   scope,
		Service: "logging",
		Decode:  decodeListResponse,
	})
	if err != nil {
		return nil, err
	}
	return v.([]Entry), nil
}

func decodeEmpty(body []byte) (any, error) {
	return nil, nil
}

func decodeListResponse(body []byte) (any, error) {
	var resp listLogEntriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("logging: decode list response: %w", err)
	}
	return resp.Entries, nil
}
