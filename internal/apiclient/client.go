// Package apiclient is the single choke point for outbound requests to the
// backend REST API. It injects headers, enforces the request timeout and
// turns every failure into a tagged *errors.AppError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	obserrors "github.com/target/mmk-admin-console/internal/observability/errors"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultKeyHeader = "X-API-Key"
	maxErrorBody     = 64 << 10
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	APIKey    string
	KeyHeader string
	Timeout   time.Duration
	// Client overrides the HTTP client (tests); Timeout still applies per request.
	Client *http.Client
	Logger *slog.Logger
}

// Client wraps the backend REST API. It owns the bearer token.
type Client struct {
	baseURL   string
	apiKey    string
	keyHeader string
	timeout   time.Duration
	http      *http.Client
	logger    *slog.Logger

	mu                  sync.RWMutex
	token               string
	onTokenExpired      func(ctx context.Context)
	onConnectivityError func(ctx context.Context, err *apperrors.AppError)
}

// New builds a Client. Callers should pass a validated config.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	hc := opts.Client
	if hc == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc = &http.Client{Jar: jar}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	keyHeader := strings.TrimSpace(opts.KeyHeader)
	if keyHeader == "" {
		keyHeader = defaultKeyHeader
	}

	return &Client{
		baseURL:   base,
		apiKey:    opts.APIKey,
		keyHeader: keyHeader,
		timeout:   timeout,
		http:      hc,
		logger:    logger.With("component", "apiclient"),
	}, nil
}

// SetToken stores the bearer token sent on authenticated requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken drops the bearer token.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnTokenExpired registers the process-wide handler for expired tokens.
func (c *Client) OnTokenExpired(fn func(ctx context.Context)) {
	c.mu.Lock()
	c.onTokenExpired = fn
	c.mu.Unlock()
}

// OnConnectivityError registers the process-wide handler for connectivity failures.
func (c *Client) OnConnectivityError(fn func(ctx context.Context, err *apperrors.AppError)) {
	c.mu.Lock()
	c.onConnectivityError = fn
	c.mu.Unlock()
}

// RequestOptions tunes a single call.
type RequestOptions struct {
	Method  string
	Body    any
	Query   url.Values
	Headers map[string]string
	// RequireAuth defaults to true; set to false to omit the bearer token.
	RequireAuth *bool
	// SkipErrorHandling suppresses the expiry and connectivity hooks.
	SkipErrorHandling bool
}

// Bool is a helper for RequestOptions.RequireAuth.
func Bool(v bool) *bool { return &v }

// Request performs exactly one attempt against endpoint and decodes the JSON
// response into out (which may be nil).
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	requireAuth := opts.RequireAuth == nil || *opts.RequireAuth
	return c.do(ctx, endpoint, opts, requireAuth, out)
}

// AuthRequest is Request without the bearer token, for login and friends.
func (c *Client) AuthRequest(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	return c.do(ctx, endpoint, opts, false, out)
}

// Get issues an authenticated GET.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodGet}, out)
}

// Post issues an authenticated POST.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPost, Body: body}, out)
}

// Put issues an authenticated PUT.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPut, Body: body}, out)
}

// Patch issues an authenticated PATCH.
func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) error {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodPatch, Body: body}, out)
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.Request(ctx, endpoint, RequestOptions{Method: http.MethodDelete}, out)
}

// AuthGet issues a GET without the bearer token.
func (c *Client) AuthGet(ctx context.Context, endpoint string, out any) error {
	return c.AuthRequest(ctx, endpoint, RequestOptions{Method: http.MethodGet}, out)
}

// AuthPost issues a POST without the bearer token.
func (c *Client) AuthPost(ctx context.Context, endpoint string, body, out any) error {
	return c.AuthRequest(ctx, endpoint, RequestOptions{Method: http.MethodPost, Body: body}, out)
}

// Health probes path with its own timeout. It never fires the hooks.
func (c *Client) Health(ctx context.Context, path string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.do(ctx, path, RequestOptions{Method: http.MethodGet, SkipErrorHandling: true}, false, nil)
}

func (c *Client) do(ctx context.Context, endpoint string, opts RequestOptions, withToken bool, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, endpoint, opts, withToken)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(ctx, req, opts, Classify(Failure{Err: err}))
	}
	defer func() {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			c.logger.DebugContext(ctx, "read error body", "error", readErr)
		}
		return c.fail(ctx, req, opts, Classify(parseErrorBody(resp.StatusCode, body)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return c.fail(ctx, req, opts, Classify(Failure{Err: fmt.Errorf("decode response: %w", err), Status: resp.StatusCode}))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, endpoint string, opts RequestOptions, withToken bool) (*http.Request, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(opts.Query) > 0 {
		target += "?" + opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set(c.keyHeader, c.apiKey)
	}
	if withToken {
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// fail runs the process-wide handlers for appErr and returns it.
func (c *Client) fail(ctx context.Context, req *http.Request, opts RequestOptions, appErr *apperrors.AppError) error {
	c.logger.DebugContext(ctx, "api request failed",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.String("request_id", req.Header.Get("X-Request-ID")),
		slog.Int("status", appErr.StatusCode),
		slog.String("code", string(appErr.Code)),
		slog.String("error_type", obserrors.Classify(appErr)),
	)

	if opts.SkipErrorHandling {
		return appErr
	}

	// Hooks run with a context detached from the request timeout.
	hookCtx := context.WithoutCancel(ctx)

	switch appErr.Code {
	case apperrors.ErrCodeAuthExpired:
		c.ClearToken()
		c.mu.RLock()
		hook := c.onTokenExpired
		c.mu.RUnlock()
		if hook != nil {
			hook(hookCtx)
		}
	case apperrors.ErrCodeConnectivity:
		c.mu.RLock()
		hook := c.onConnectivityError
		c.mu.RUnlock()
		if hook != nil {
			hook(hookCtx, appErr)
		}
	}
	return appErr
}
