// Package jsonrpc provides a JSON-RPC 2.0 client for the Mopidy HTTP API.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"resty.dev/v3"
)

const (
	// DefaultEndpoint is the Mopidy JSON-RPC path.
	DefaultEndpoint = "/mopidy/rpc"

	// DefaultTimeout bounds one call.
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrTransport wraps network and HTTP status failures.
	ErrTransport = errors.New("jsonrpc transport failure")

	// ErrMismatchedID is returned when the response does not answer the request.
	ErrMismatchedID = errors.New("jsonrpc response id mismatch")
)

// Error is an error object returned by the server.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

// Caller is the boundary used by the rest of the application. A false result
// means the call failed for any reason; the failure has already been logged.
type Caller interface {
	Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, bool)
}

// Client calls methods on one Mopidy server.
type Client struct {
	http     *resty.Client
	endpoint string
	timeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the RPC path.
func WithEndpoint(path string) Option {
	return func(c *Client) {
		c.endpoint = path
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:6680".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(c.timeout).
		SetHeader("Content-Type", "application/json")

	return c
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// Invoke performs one call and returns the raw result or a descriptive error.
func (c *Client) Invoke(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	req := request{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
	}
	if len(params) > 0 {
		req.Params = params
	}

	var resp response
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransport, method, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrTransport, method, res.StatusCode())
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("%w: sent %s, got %s", ErrMismatchedID, req.ID, resp.ID)
	}

	return resp.Result, nil
}

// Call implements Caller.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, bool) {
	start := time.Now()
	result, err := c.Invoke(ctx, method, params)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Msg("RPC call failed")
		return nil, false
	}

	log.Debug().
		Str("method", method).
		Dur("elapsed", time.Since(start)).
		Msg("RPC call completed")
	return result, true
}
