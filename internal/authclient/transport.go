package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrSessionExpired is returned for every request caught behind a refresh
// attempt that failed. The stored tokens are cleared when it fires; callers
// must re-authenticate.
var ErrSessionExpired = errors.New("session expired, login required")

// refreshCall represents one in-flight refresh. Every request that hits a 401
// while it runs waits on done and shares its outcome, so a burst of expired
// calls produces exactly one network call to the refresh endpoint.
type refreshCall struct {
	done chan struct{}
	err  error
}

// transport attaches bearer tokens to outbound requests and transparently
// recovers from access-token expiry.
type transport struct {
	client *Client
	next   http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if access, _ := t.client.store.Tokens(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// A 401 from the login or refresh endpoint is a real authentication
	// failure, not an expired access token.
	if t.client.isAuthEndpoint(req.URL.Path) {
		return resp, nil
	}

	drain(resp)

	if err := t.client.refreshTokens(req.Context()); err != nil {
		return nil, err
	}

	// Replay once with the fresh token. If this 401s again we hand the
	// response back untouched rather than loop.
	retry, err := cloneRequest(req)
	if err != nil {
		return nil, err
	}
	access, _ := t.client.store.Tokens()
	retry.Header.Set("Authorization", "Bearer "+access)
	return t.next.RoundTrip(retry)
}

// refreshTokens is the single-flight coordinator. The first caller performs
// the refresh; everyone else suspends on the same call and shares its result.
// The in-flight slot is always cleared when the call settles so a later 401
// can trigger a fresh attempt.
func (c *Client) refreshTokens(ctx context.Context) error {
	c.refreshMu.Lock()
	if call := c.inflight; call != nil {
		c.refreshMu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.inflight = call
	c.refreshMu.Unlock()

	call.err = c.doRefresh(ctx)

	c.refreshMu.Lock()
	c.inflight = nil
	c.refreshMu.Unlock()
	close(call.done)
	return call.err
}

func (c *Client) doRefresh(ctx context.Context) error {
	_, refresh := c.store.Tokens()
	if refresh == "" {
		return c.expireSession()
	}

	payload, _ := json.Marshal(map[string]string{"refresh_token": refresh})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.refreshPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// Bypasses the wrapping transport: a refresh must never recurse into
	// another refresh.
	resp, err := c.plain.Do(req)
	if err != nil {
		return fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.expireSession()
	}

	var out struct {
		AccessToken  string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	c.store.SetTokens(out.AccessToken, out.RefreshToken)
	return nil
}

// expireSession is the unrecoverable fallback: wipe tokens and notify.
func (c *Client) expireSession() error {
	c.store.Clear()
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
	return ErrSessionExpired
}

func (c *Client) isAuthEndpoint(path string) bool {
	return strings.HasSuffix(path, c.loginPath) || strings.HasSuffix(path, c.refreshPath)
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("cannot replay request without GetBody")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	retry.Body = body
	return retry, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
