// Package backend talks to the inventory backend API. Every call returns a
// normalized Result; only transport failures are reported as errors.
package backend

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

	"github.com/jrsteele09/storefront-relay/internal/errors"
	"github.com/jrsteele09/storefront-relay/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const tracerName = "github.com/jrsteele09/storefront-relay/backend"

// Gateway performs a single backend call
type Gateway interface {
	Do(ctx context.Context, req Request) (Result, error)
}

// Request describes one call to the backend
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON encoded when set. json.RawMessage is sent verbatim.
	Body any
	// Token is attached as a bearer credential when set
	Token string
}

// WithToken returns a copy of the request carrying a different access token
func (r Request) WithToken(token string) Request {
	r.Token = token
	return r
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

var _ Gateway = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for the backend rooted at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Wrapf(errors.ErrInvalidBackendURL, "[backend New] %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do sends req and normalizes the response. A body that is not JSON is
// returned as text with its original status. Network failures are returned
// wrapped with errors.ErrBackendUnavailable.
func (c *Client) Do(ctx context.Context, req Request) (Result, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := c.tracer.Start(ctx, "backend "+method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", req.Path),
		))
	defer span.End()

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return Result{}, fmt.Errorf("[backend Do] encode body for %s %s: %w", method, req.Path, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req), body)
	if err != nil {
		return Result{}, fmt.Errorf("[backend Do] build request %s %s: %w", method, req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		(&oauth2.Token{AccessToken: req.Token}).SetAuthHeader(httpReq)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.fail(span, method, err)
		return Result{}, fmt.Errorf("[backend Do] %s %s: %w: %w", method, req.Path, errors.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.fail(span, method, err)
		return Result{}, fmt.Errorf("[backend Do] read %s %s: %w: %w", method, req.Path, errors.ErrBackendUnavailable, err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.metrics.ObserveBackend(method, strconv.Itoa(resp.StatusCode))

	return Result{Status: resp.StatusCode, Body: ParseBody(data)}, nil
}

func (c *Client) fail(span trace.Span, method string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.metrics.ObserveBackend(method, "error")
}

func (c *Client) url(req Request) string {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}
