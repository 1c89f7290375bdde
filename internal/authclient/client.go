// Package authclient is a Go API client for the console with transparent
// access-token refresh. Concurrent requests that all hit 401 on an expired
// token are coalesced behind a single refresh call; each request is replayed
// at most once.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultLoginPath   = "/api/v1/auth/login"
	defaultRefreshPath = "/api/v1/auth/refresh"
	defaultTimeout     = 30 * time.Second
)

// Client is a console API client. Construct with New; the zero value is not
// usable.
type Client struct {
	baseURL     string
	loginPath   string
	refreshPath string

	http  *http.Client // wrapped with the auth transport
	plain *http.Client // used for the refresh call itself

	store            TokenStore
	onSessionExpired func()

	refreshMu sync.Mutex
	inflight  *refreshCall
}

// Option configures a Client.
type Option func(*Client)

// WithTokenStore replaces the default in-memory token store.
func WithTokenStore(store TokenStore) Option {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// WithSessionExpiredHook registers a callback fired when a refresh fails
// terminally and local tokens have been discarded.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
			c.plain.Timeout = d
		}
	}
}

// New creates a client for the console at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		loginPath:   defaultLoginPath,
		refreshPath: defaultRefreshPath,
		store:       NewMemoryStore(),
		plain:       &http.Client{Timeout: defaultTimeout},
	}
	c.http = &http.Client{
		Timeout:   defaultTimeout,
		Transport: &transport{client: c, next: http.DefaultTransport},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TokenResponse mirrors the server's token-issuing response shape.
type TokenResponse struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Login authenticates and stores the issued pair. A 401 here fails
// immediately; the refresh machinery never runs for login failures.
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) error {
	var out TokenResponse
	err := c.postJSON(ctx, c.loginPath, map[string]interface{}{
		"email":       email,
		"password":    password,
		"remember_me": rememberMe,
	}, &out)
	if err != nil {
		return err
	}
	c.store.SetTokens(out.AccessToken, out.RefreshToken)
	return nil
}

// Logout revokes the current session server-side and drops local tokens.
func (c *Client) Logout(ctx context.Context) error {
	err := c.postJSON(ctx, "/api/v1/auth/logout", nil, nil)
	c.store.Clear()
	return err
}

// Do issues an arbitrary API request through the refreshing transport.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// Get fetches path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return fmt.Errorf("api error %d: %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("api error %d", resp.StatusCode)
}
