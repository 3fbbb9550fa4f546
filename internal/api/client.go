// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Configuration constants for the backend client.
const (
	// DefaultBaseURL is the backend's API root.
	DefaultBaseURL = "http://localhost:5000/api"

	// DefaultRequestTimeout bounds reads and non-chat mutations.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultChatTimeout bounds a single question; answers can be slow.
	DefaultChatTimeout = 120 * time.Second

	// DefaultMaxRetries is the number of extra attempts for idempotent reads.
	DefaultMaxRetries = 2

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024
)

// sharedTransport pools connections across clients.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// Options configure a Client. Zero values take the package defaults.
type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	ChatTimeout    time.Duration
	MaxRetries     int
	UserAgent      string

	// HTTPClient overrides the pooled client (tests).
	HTTPClient *http.Client
}

// Client talks to the docent backend. It is safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	chatTimeout    time.Duration
	maxRetries     int
	userAgent      string

	mu             sync.RWMutex
	token          string
	onUnauthorized []func()
}

// New creates a client from options.
func New(opts Options) *Client {
	c := &Client{
		baseURL:        strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient:     opts.HTTPClient,
		requestTimeout: opts.RequestTimeout,
		chatTimeout:    opts.ChatTimeout,
		maxRetries:     opts.MaxRetries,
		userAgent:      opts.UserAgent,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: sharedTransport}
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = DefaultRequestTimeout
	}
	if c.chatTimeout <= 0 {
		c.chatTimeout = DefaultChatTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.userAgent == "" {
		c.userAgent = "docent"
	}
	return c
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Host returns the host[:port] of the base URL, used to key stored credentials.
func (c *Client) Host() string {
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Host == "" {
		return c.baseURL
	}
	return u.Host
}

// SetToken replaces the bearer token. An empty token sends no Authorization.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the held bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized registers fn to run after every 401 response, whatever the
// call site. Hooks run synchronously on the calling goroutine, before the
// error is returned.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
	c.mu.Unlock()
}

func (c *Client) fireUnauthorized() {
	c.mu.RLock()
	hooks := make([]func(), len(c.onUnauthorized))
	copy(hooks, c.onUnauthorized)
	c.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// call describes one logical API operation.
type call struct {
	method      string
	path        string
	body        []byte
	contentType string
	timeout     time.Duration
}

// getJSON performs a GET with retry and decodes into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doWithRetry(ctx, call{method: http.MethodGet, path: path, timeout: c.requestTimeout}, out)
}

// sendJSON performs a single mutation with a JSON body. Never retried.
func (c *Client) sendJSON(ctx context.Context, method, path string, in any, timeout time.Duration, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = b
	}
	if timeout <= 0 {
		timeout = c.requestTimeout
	}
	return c.do(ctx, call{method: method, path: path, body: body, contentType: "application/json", timeout: timeout}, out)
}

// doWithRetry retries idempotent calls on 5xx and network errors with
// exponential backoff.
func (c *Client) doWithRetry(ctx context.Context, cl call, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		err := c.do(ctx, cl, out)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// do performs exactly one HTTP request.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	ctx, cancel := context.WithTimeout(ctx, cl.timeout)
	defer cancel()

	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, cl.contentType)

	logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	logResponse(req, resp, time.Since(start))

	data, err := readResponse(resp)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return transportError(err)
		}
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, data)
		if resp.StatusCode == http.StatusUnauthorized {
			c.fireUnauthorized()
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// setHeaders sets auth, identity and tracing headers.
func (c *Client) setHeaders(req *http.Request, contentType string) {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// readResponse reads the body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// calculateBackoff returns the delay before retry attempt n (n >= 1).
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// =============================================================================
// LOGGING (never headers or bodies)
// =============================================================================

func logRequest(req *http.Request) {
	log.Printf("API Request: %s %s [%s]", req.Method, req.URL.Path, req.Header.Get("X-Request-ID"))
}

func logResponse(req *http.Request, resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %s %s -> %d (%v)", req.Method, req.URL.Path, resp.StatusCode, duration.Round(time.Millisecond))
}
