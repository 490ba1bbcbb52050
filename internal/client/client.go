// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package client provides the HTTP client for the locktower API.
//
// The dashboard, the CLI, and the stress tool all talk to the coordinator
// through this package. Acquire calls block server-side; everything else is
// a quick round trip.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jeranaias/locktower/internal/identity"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the locktower client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeServerDown
	ErrTypeTimeout
	ErrTypeCancelled
	ErrTypeInvalidRequest
	ErrTypeUnauthorized
	ErrTypeRateLimited
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrServerDown   = &ClientError{Type: ErrTypeServerDown, Message: "locktower server is not reachable"}
	ErrTimeout      = &ClientError{Type: ErrTypeTimeout, Message: "lock request timed out"}
	ErrCancelled    = &ClientError{Type: ErrTypeCancelled, Message: "lock request was cancelled"}
	ErrUnauthorized = &ClientError{Type: ErrTypeUnauthorized, Message: "authentication failed"}
	ErrRateLimited  = &ClientError{Type: ErrTypeRateLimited, Message: "rate limit exceeded"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the locktower client.
type ClientConfig struct {
	// BaseURL is the coordinator base URL (default: http://127.0.0.1:7700).
	// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6
	// resolution issues on Windows.
	BaseURL string

	// AuthToken is sent as a bearer token when non-empty.
	AuthToken string

	// Session identifies this caller on acquire and release calls.
	// A fresh id is minted when empty.
	Session string

	// Timeout for snapshot requests (default: 10s). Acquire calls are
	// exempt; their wait is bounded by the server's lock timeout and the
	// caller's context.
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:7700",
		Timeout: 10 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to a locktower coordinator.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	c := client.New(nil)
//	if _, err := c.AcquireWrite(ctx, "orders"); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Release(context.Background(), "orders")
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	waitClient *http.Client
}

// New creates a locktower client. A nil config uses defaults.
func New(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:7700"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Session == "" {
		config.Session = identity.NewSessionID()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		// No client-side deadline: an acquire may legitimately wait the
		// full server lock timeout. Cancellation rides the context.
		waitClient: &http.Client{},
	}
}

// Session returns the session id this client acquires under.
func (c *Client) Session() string {
	return c.config.Session
}

// BaseURL returns the coordinator base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// HEALTH AND SNAPSHOTS
// =============================================================================

// Health fetches the coordinator health summary.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.get(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches held locks and table statistics.
func (c *Client) Status(ctx context.Context) (*StatusSnapshot, error) {
	var out StatusSnapshot
	if err := c.get(ctx, "/v1/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Queue fetches the waiting requests in arrival order.
func (c *Client) Queue(ctx context.Context) (*QueueSnapshot, error) {
	var out QueueSnapshot
	if err := c.get(ctx, "/v1/queue", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Audit fetches up to limit recent audit lines, most recent first.
// A limit of 0 asks for the server default.
func (c *Client) Audit(ctx context.Context, limit int) (*AuditTail, error) {
	path := "/v1/audit"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out AuditTail
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// LOCK OPERATIONS
// =============================================================================

// AcquireRead acquires a read lock on resource, blocking until granted or
// the wait fails.
func (c *Client) AcquireRead(ctx context.Context, resource string) (*AcquireResult, error) {
	return c.acquire(ctx, resource, "read")
}

// AcquireWrite acquires a write lock on resource, blocking until granted or
// the wait fails.
func (c *Client) AcquireWrite(ctx context.Context, resource string) (*AcquireResult, error) {
	return c.acquire(ctx, resource, "write")
}

func (c *Client) acquire(ctx context.Context, resource, mode string) (*AcquireResult, error) {
	body := acquireRequest{
		Resource: resource,
		Session:  c.config.Session,
		Mode:     mode,
	}

	var out AcquireResult
	if err := c.post(ctx, c.waitClient, "/v1/locks/acquire", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Release gives up this client's lock on resource. Releasing a lock the
// session does not hold reports false without error.
func (c *Client) Release(ctx context.Context, resource string) (bool, error) {
	body := releaseRequest{
		Resource: resource,
		Session:  c.config.Session,
	}

	var out releaseResult
	if err := c.post(ctx, c.httpClient, "/v1/locks/release", body, &out); err != nil {
		return false, err
	}
	return out.Released, nil
}

// SimulateRead starts a synthetic read holder and returns its session id
// immediately.
func (c *Client) SimulateRead(ctx context.Context, resource string, hold time.Duration) (*SimulateResult, error) {
	return c.simulate(ctx, "/v1/simulate/read", resource, hold)
}

// SimulateWrite starts a synthetic write holder and returns its session id
// immediately.
func (c *Client) SimulateWrite(ctx context.Context, resource string, hold time.Duration) (*SimulateResult, error) {
	return c.simulate(ctx, "/v1/simulate/write", resource, hold)
}

func (c *Client) simulate(ctx context.Context, path, resource string, hold time.Duration) (*SimulateResult, error) {
	body := simulateRequest{
		Resource: resource,
		HoldMS:   int(hold.Milliseconds()),
	}

	var out SimulateResult
	if err := c.post(ctx, c.httpClient, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Unlock force-unlocks one resource, evicting holders and rejecting waiters.
func (c *Client) Unlock(ctx context.Context, resource string) error {
	return c.post(ctx, c.httpClient, "/v1/unlock", unlockRequest{Resource: resource}, nil)
}

// Clear force-unlocks every resource and returns how many were cleared.
func (c *Client) Clear(ctx context.Context) (int, error) {
	var out clearResult
	if err := c.post(ctx, c.httpClient, "/v1/clear", struct{}{}, &out); err != nil {
		return 0, err
	}
	return out.Cleared, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// get performs a GET against path and decodes the response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	return c.do(c.httpClient, req, out)
}

// post performs a POST with a JSON body and decodes the response into out.
// A nil out discards the response body.
func (c *Client) post(ctx context.Context, hc *http.Client, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(hc, req, out)
}

// do executes the request, mapping failures onto client errors.
func (c *Client) do(hc *http.Client, req *http.Request, out interface{}) error {
	c.setHeaders(req)

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &ClientError{Type: ErrTypeCancelled, Message: "request cancelled", Cause: err}
		}
		return ErrServerDown
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// setHeaders attaches auth and session identity to a request.
func (c *Client) setHeaders(req *http.Request) {
	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}
	if c.config.Session != "" {
		req.Header.Set("X-Session-Id", c.config.Session)
	}
}

// mapError turns an error response into a typed client error.
func (c *Client) mapError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}

	var envelope errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: fmt.Sprintf("unexpected status %s", resp.Status),
		}
	}

	switch envelope.Error.Type {
	case "lock_timeout":
		return ErrTimeout
	case "lock_cancelled":
		return ErrCancelled
	case "invalid_resource", "invalid_request_error":
		return &ClientError{Type: ErrTypeInvalidRequest, Message: envelope.Error.Message}
	default:
		return &ClientError{Type: ErrTypeUnknown, Message: envelope.Error.Message}
	}
}
