// Package gateway is the HTTP collaborator of the storefront client. It
// speaks JSON to the backend API, attaches the bearer token, tenant and
// request-id headers, paces requests with a token bucket and classifies
// failures into the apierr taxonomy.
package gateway

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joeycumines/storefront/internal/apierr"
)

// Header names.
const (
	HeaderAuthorization = "Authorization"
	HeaderTenantID      = "X-Tenant-ID"
	HeaderRequestID     = "X-Request-ID"
)

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 8 << 20
)

// TokenSource returns the bearer token to attach, or "" for none.
type TokenSource func() string

// Options configures a Client.
type Options struct {
	// BaseURL is the backend origin; request paths are resolved against it.
	BaseURL *url.URL
	// Tenant is sent as X-Tenant-ID when non-empty.
	Tenant string
	// Tokens supplies the bearer token for each request.
	Tokens TokenSource
	// OnUnauthorized is called with the token a request carried whenever
	// the backend answers 401.
	OnUnauthorized func(token string)
	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
	// RateLimit is requests per second; zero disables pacing.
	RateLimit float64
	Burst     int
	UserAgent string
	Logger    *slog.Logger
}

// Client issues JSON requests against the backend API. It is safe for
// concurrent use.
type Client struct {
	base           *url.URL
	tenant         string
	tokens         TokenSource
	onUnauthorized func(string)
	http           *http.Client
	limiter        *rate.Limiter
	userAgent      string
	logger         *slog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	base := opts.BaseURL
	if base == nil {
		base = &url.URL{Scheme: "http", Host: "localhost:8000"}
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	c := &Client{
		base:           base,
		tenant:         opts.Tenant,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		http:           hc,
		userAgent:      opts.UserAgent,
		logger:         opts.Logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Tenant returns the default tenant subdomain.
func (c *Client) Tenant() string { return c.tenant }

// BaseURL returns a copy of the backend origin.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is marshalled as JSON when non-nil.
	Body any
	// Tenant overrides the client's tenant subdomain when non-empty.
	Tenant string
	// Token overrides the TokenSource when non-empty.
	Token string
	// Anonymous suppresses the Authorization header.
	Anonymous bool
}

// Do performs req and decodes a 2xx JSON body into out, when out is
// non-nil. Status 401 yields a credential error and triggers
// OnUnauthorized; every other failure is transient.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	op := strings.TrimSpace(req.Method + " " + req.Path)

	httpReq, token, err := c.newRequest(ctx, req)
	if err != nil {
		return apierr.Transient(op, 0, "invalid request", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apierr.Transient(op, 0, "request cancelled", err)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("[Gateway] request failed", "op", op, "error", err)
		return apierr.Transient(op, 0, "network error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apierr.Transient(op, resp.StatusCode, "failed to read response", err)
	}
	c.logger.Debug("[Gateway] response",
		"op", op,
		"status", resp.StatusCode,
		"request_id", httpReq.Header.Get(HeaderRequestID),
		"duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.onUnauthorized != nil && token != "" {
			c.onUnauthorized(token)
		}
		return apierr.Credential(op, resp.StatusCode, ErrorMessage(body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return apierr.Transient(op, resp.StatusCode, ErrorMessage(body), nil)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apierr.Transient(op, resp.StatusCode, "invalid response body", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, string, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	ref, err := url.Parse(req.Path)
	if err != nil {
		return nil, "", fmt.Errorf("parse path: %w", err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, "", errors.New("path must be relative to the API base")
	}
	target := c.resolve(ref)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, "", err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	httpReq.Header.Set(HeaderRequestID, uuid.NewString())
	if tenant := cmp.Or(req.Tenant, c.tenant); tenant != "" {
		httpReq.Header.Set(HeaderTenantID, tenant)
	}

	var token string
	if !req.Anonymous {
		token = req.Token
		if token == "" && c.tokens != nil {
			token = c.tokens()
		}
		if token != "" {
			httpReq.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
	}
	return httpReq, token, nil
}

// resolve joins ref onto the base URL, keeping any base path prefix
// (https://host/v1 + /api/x = https://host/v1/api/x).
func (c *Client) resolve(ref *url.URL) *url.URL {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	u.RawPath = ""
	u.RawQuery = ref.RawQuery
	u.Fragment = ""
	return &u
}

// Get performs a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}
