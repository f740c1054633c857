// Package api implements the HTTP client for the product API: login and
// registration, token handling, and product reads and writes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/atinyakov/productdesk/internal/client/session"
	"go.uber.org/zap"
)

// Endpoint paths relative to the base URL.
const (
	PathLogin    = "/api/login"
	PathRegister = "/api/register"
	PathProfile  = "/api/profile"
	PathProducts = "/api/products"
)

// maxErrorBody bounds how much of an error response is kept in StatusError.
const maxErrorBody = 4 << 10

type authMode int

const (
	// authNone never sends Authorization.
	authNone authMode = iota
	// authIfPresent sends Authorization only when a token is cached.
	authIfPresent
	// authAlways sends "Bearer <token>" even when the token is empty.
	authAlways
)

// Client talks to the product API on behalf of a single session.
// A Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
	session *session.Session
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Its transport is wrapped
// with request logging.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New constructs a Client for the API at baseURL with an empty session.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     zap.NewNop(),
		session: &session.Session{},
	}
	for _, opt := range opts {
		opt(c)
	}

	next := c.http.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := *c.http
	wrapped.Transport = &loggingTransport{next: next, log: c.log}
	c.http = &wrapped

	return c
}

// Session returns the session owned by the client. Callers may read it;
// only Login, Register and Logout mutate it.
func (c *Client) Session() *session.Session {
	return c.session
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a request and returns the response for 2xx statuses. Any other
// status is returned as a *StatusError with the body consumed.
func (c *Client) do(ctx context.Context, method, path string, body any, mode authMode) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	switch token := c.session.Token(); mode {
	case authAlways:
		req.Header.Set("Authorization", "Bearer "+token)
	case authIfPresent:
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return resp, nil
}

// decode reads a JSON body into v and closes it.
func decode(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// discard drains and closes a body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
