// Package client is the consumer side of the relay: an HTTP agent that holds
// the session cookies and silently renews them when a call comes back 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/jrsteele09/storefront-relay/internal/errors"
	"github.com/rs/zerolog"
)

const (
	// RefreshPath is the relay route that rotates the session cookies
	RefreshPath = "/api/auth/refresh"
	// LoginPath is where callers send the user once IsSessionExpired reports true
	LoginPath = "/login"

	headerSessionExpired = "X-Session-Expired"
)

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. A cookie jar is attached if
// hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the relay at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrInvalidBackendURL, "[client New] %q", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{baseURL: u, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrapf(err, "[client New]")
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Jar exposes the session cookies held by the client
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// URL resolves a relay path against the base URL
func (c *Client) URL(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.String() + path
	}
	u := *c.baseURL
	u.Path = c.baseURL.Path + ref.Path
	u.RawQuery = ref.RawQuery
	return u.String()
}

// Do sends req. A 401 triggers one call to RefreshPath: if the refresh
// fails the original 401 response is returned untouched, otherwise req is
// replayed exactly once and the replay's response is returned. A request
// whose body cannot be rebuilt (no GetBody) still refreshes the session but
// is not replayed; its original 401 is returned.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	// The client adds jar cookies to req's header in place, so the replay
	// starts from the caller's original header.
	header := req.Header.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || req.URL.Path == c.baseURL.Path+RefreshPath {
		return resp, nil
	}
	ctx := req.Context()
	if !c.refresh(ctx) {
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	retry := req.Clone(ctx)
	retry.Header = header
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}
	drain(resp)

	return c.http.Do(retry)
}

func (c *Client) refresh(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(RefreshPath), nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("client: refresh call failed")
		return false
	}
	defer drain(resp)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Get fetches a relay path
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "[client Get]")
	}
	return c.Do(req)
}

// PostJSON posts v encoded as JSON to a relay path
func (c *Client) PostJSON(ctx context.Context, path string, v any) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "[client PostJSON]")
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), body)
	if err != nil {
		return nil, errors.Wrapf(err, "[client PostJSON]")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req)
}

// IsSessionExpired reports whether resp means the user has to log in again
func IsSessionExpired(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusUnauthorized || resp.Header.Get(headerSessionExpired) == "true"
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
