package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/tokenestate/go-estate-auth"
	"golang.org/x/time/rate"
)

const (
	// HeaderIdempotencyKey carries the provisioning key on user creation
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderWallet names the wallet acting on the request
	HeaderWallet = "X-Wallet-Address"

	maxErrorBody = 4 << 10
)

// TokenSource returns the identity token to attach to authenticated calls.
type TokenSource func() (string, bool)

// Client talks to the estate backend REST API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	token   TokenSource
	logger  auth.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests to perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTokenSource attaches the current identity token to /api calls.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		c.token = src
	}
}

// WithLogger overrides the logger.
func WithLogger(logger auth.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, auth.ValidationError(err, fmt.Sprintf("invalid backend url %q", baseURL))
	}

	_, logger := auth.ResolveLogger("client", nil, nil)
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: auth.DefaultRequestTimeout},
		logger:  logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Login resolves wallet into its backend user.
func (c *Client) Login(ctx context.Context, wallet string) (*auth.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Wallet: wallet}, &out, withWallet(wallet)); err != nil {
		return nil, err
	}
	user := out.user()
	if user == nil {
		return nil, auth.NotFoundError(nil, "POST /auth/login: response named no user")
	}
	return user, nil
}

// Logout invalidates wallet's server session.
func (c *Client) Logout(ctx context.Context, wallet string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", loginRequest{Wallet: wallet}, nil, withWallet(wallet))
}

// CreateUser registers a new user.
func (c *Client) CreateUser(ctx context.Context, req auth.NewUserRequest) (*auth.User, error) {
	var out userEnvelope
	opts := []requestOption{withWallet(req.Wallet)}
	if req.IdempotencyKey != "" {
		opts = append(opts, withHeader(HeaderIdempotencyKey, req.IdempotencyKey))
	}
	if err := c.do(ctx, http.MethodPost, "/users", req, &out, opts...); err != nil {
		return nil, err
	}
	return out.user(), nil
}

// ListUsers returns every backend user (admin only).
func (c *Client) ListUsers(ctx context.Context) ([]auth.User, error) {
	var out []auth.User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &out, c.authenticated()); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUserRole sets the backend role of userID.
func (c *Client) UpdateUserRole(ctx context.Context, userID string, role auth.Role) (*auth.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, auth.ValidationError(nil, "user id is required")
	}
	var out userEnvelope
	path := "/api/users/" + url.PathEscape(userID) + "/role"
	if err := c.do(ctx, http.MethodPut, path, roleRequest{Role: role}, &out, c.authenticated()); err != nil {
		return nil, err
	}
	return out.user(), nil
}

// PublicProperties lists properties visible without a session.
func (c *Client) PublicProperties(ctx context.Context) ([]Property, error) {
	var out []Property
	if err := c.do(ctx, http.MethodGet, "/properties/public", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Properties lists every property the caller may manage.
func (c *Client) Properties(ctx context.Context) ([]Property, error) {
	var out []Property
	if err := c.do(ctx, http.MethodGet, "/api/properties", nil, &out, c.authenticated()); err != nil {
		return nil, err
	}
	return out, nil
}

// Health probes the backend.
func (c *Client) Health(ctx context.Context) (auth.HealthStatus, error) {
	var out auth.HealthStatus
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

type loginRequest struct {
	Wallet string `json:"wallet"`
}

type roleRequest struct {
	Role auth.Role `json:"role"`
}

// userEnvelope accepts both {"user": {...}} and a bare user object.
type userEnvelope struct {
	auth.User
	Wrapped *auth.User `json:"user,omitempty"`
}

// user returns nil when the body named no user.
func (e userEnvelope) user() *auth.User {
	if e.Wrapped != nil {
		if e.Wrapped.ID == "" && e.Wrapped.Wallet == "" {
			return nil
		}
		return e.Wrapped.Clone()
	}
	if e.User.ID == "" && e.User.Wallet == "" {
		return nil
	}
	u := e.User
	return &u
}

type requestOption func(*http.Request)

func withHeader(key, value string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

func withWallet(wallet string) requestOption {
	return withHeader(HeaderWallet, wallet)
}

func (c *Client) authenticated() requestOption {
	return func(r *http.Request) {
		if c.token == nil {
			return
		}
		if token, ok := c.token(); ok {
			r.Header.Set("Authorization", "Bearer "+token)
			r.Header.Set(HeaderWallet, token)
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, opts ...requestOption) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return auth.NetworkError(err, "rate limiter wait aborted")
		}
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "method", method, "path", path, "error", err)
		return auth.NetworkError(err, fmt.Sprintf("%s %s: no response", method, path))
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request", "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= http.StatusBadRequest {
		return mapStatus(method, path, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode backend response").
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	return nil
}
