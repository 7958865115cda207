package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/dittoftp/pkg/behavior"
)

// Client talks to a running control surface over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL (e.g. "http://127.0.0.1:8022").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError is a non-2xx reply from the control surface.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("control API: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Health checks that the control surface is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Behaviors returns every command behavior in display order.
func (c *Client) Behaviors(ctx context.Context) ([]behavior.Entry, error) {
	var resp BehaviorsResponse
	if err := c.do(ctx, http.MethodGet, "/api/behaviors", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Behaviors, nil
}

// SetBehavior updates one command. Nil fields keep their current value. The
// effective (clamped) behavior is returned.
func (c *Client) SetBehavior(ctx context.Context, command string, errorEnabled *bool, delay *int) (behavior.Entry, error) {
	var entry behavior.Entry
	req := SetBehaviorRequest{Error: errorEnabled, Delay: delay}
	err := c.do(ctx, http.MethodPut, "/api/behaviors/"+url.PathEscape(command), req, &entry)
	return entry, err
}

// Reset restores every command to the default behavior.
func (c *Client) Reset(ctx context.Context) ([]behavior.Entry, error) {
	var resp BehaviorsResponse
	if err := c.do(ctx, http.MethodPost, "/api/behaviors/reset", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Behaviors, nil
}

// Logs returns buffered log records with a sequence number greater than since.
func (c *Client) Logs(ctx context.Context, since uint64) ([]LogRecord, error) {
	var resp LogsResponse
	path := "/api/logs?since=" + strconv.FormatUint(since, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("control API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		var apiErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = "unexpected response"
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
