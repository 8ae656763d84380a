// Package client talks to the planner proxy over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/planner/internal/plan"
)

// DefaultTimeout covers a slow model call plus the proxy's own retries.
const DefaultTimeout = 90 * time.Second

// APIError is a non-2xx response from the proxy. Its message is the
// envelope message when the body carries one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client is a planner proxy client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client for the proxy at baseURL, e.g. "http://localhost:8787".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the proxy URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type generateBody struct {
	Goal        string           `json:"goal"`
	TimeHorizon plan.TimeHorizon `json:"timeHorizon"`
}

// GeneratePlan asks the proxy for a plan.
func (c *Client) GeneratePlan(ctx context.Context, goal string, horizon plan.TimeHorizon) (*plan.Envelope[plan.StructuredPlan], error) {
	var env plan.Envelope[plan.StructuredPlan]
	if err := c.do(ctx, http.MethodPost, "/plan", generateBody{Goal: goal, TimeHorizon: horizon}, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "plan generation failed"
		}
		return nil, &APIError{StatusCode: http.StatusOK, Message: msg}
	}
	return &env, nil
}

// CheckHealth fetches the proxy's health report.
func (c *Client) CheckHealth(ctx context.Context) (*plan.Health, error) {
	var h plan.Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env plan.Envelope[json.RawMessage]
		msg := ""
		if json.Unmarshal(raw, &env) == nil {
			msg = env.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
