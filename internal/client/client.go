// Package client is a small HTTP client for a running fleet server, used by
// the CLI's agents and watch commands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Iron-Ham/fleet/internal/agent"
	"github.com/Iron-Ham/fleet/internal/server"
)

// DefaultBaseURL matches the server's default listen address.
const DefaultBaseURL = "http://localhost:8080"

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fleet api: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Client talks to one fleet server.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for baseURL. An empty baseURL means DefaultBaseURL.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL returns the server address the client targets.
func (c *Client) BaseURL() string { return c.base }

// Health fetches /healthz.
func (c *Client) Health(ctx context.Context) (server.HealthResponse, error) {
	var out server.HealthResponse
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &out)
	return out, err
}

// Register creates an agent of agentType.
func (c *Client) Register(ctx context.Context, agentType string, metadata map[string]any) (string, error) {
	var out server.RegisterResponse
	req := server.RegisterRequest{AgentType: agentType, Metadata: metadata}
	if err := c.do(ctx, http.MethodPost, "/api/v1/agents", req, &out); err != nil {
		return "", err
	}
	return out.AgentID, nil
}

// ListAgents returns agents, optionally filtered by status.
func (c *Client) ListAgents(ctx context.Context, statuses ...agent.Status) ([]agent.Record, error) {
	path := "/api/v1/agents"
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = s.String()
		}
		path += "?" + url.Values{"status": {strings.Join(names, ",")}}.Encode()
	}

	var out server.ListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Agents, nil
}

// GetAgent fetches one agent record.
func (c *Client) GetAgent(ctx context.Context, id string) (agent.Record, error) {
	var out agent.Record
	err := c.do(ctx, http.MethodGet, "/api/v1/agents/"+url.PathEscape(id), nil, &out)
	return out, err
}

// StartTask starts a task on agent id.
func (c *Client) StartTask(ctx context.Context, id string, task agent.TaskData) (server.StartTaskResponse, error) {
	var out server.StartTaskResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/agents/"+url.PathEscape(id)+"/tasks",
		server.StartTaskRequest{TaskData: task}, &out)
	return out, err
}

// StopTask cancels the task on agent id.
func (c *Client) StopTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/agents/"+url.PathEscape(id)+"/tasks", nil, nil)
}

// Unregister removes agent id.
func (c *Client) Unregister(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/agents/"+url.PathEscape(id), nil, nil)
}

// Cleanup resets finished agents to idle and returns how many changed.
func (c *Client) Cleanup(ctx context.Context) (int, error) {
	var out server.CleanupResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/tasks/cleanup", nil, &out)
	return out.Cleaned, err
}

// SystemMetrics fetches the fleet-wide aggregate.
func (c *Client) SystemMetrics(ctx context.Context) (agent.SystemMetrics, error) {
	var out agent.SystemMetrics
	err := c.do(ctx, http.MethodGet, "/api/v1/metrics", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var e server.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
