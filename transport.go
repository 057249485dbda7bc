package authclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
	bearerPrefix        = "Bearer "
)

// Transport is the interceptor pair wrapped into one http.RoundTripper.
//
// Request side: public routes pass through untouched; every other request
// gets a bearer token from the session manager when one can be obtained.
// A missing token is not an error here, the server rejects if it must.
//
// Response side: 503 passes through (maintenance). A 401 whose error code is
// in the logout set forces logout immediately. Any other 401 on a
// non-public, non-refresh route triggers exactly one refresh-and-retry; on
// refresh failure the session is logged out and the original rejection
// stands. Bounding the retry to one attempt keeps an invalid refresh token
// from causing a refresh loop.
type Transport struct {
	base         http.RoundTripper
	session      SessionTokenSource
	limiter      *RateLimiter
	publicRoutes map[string]struct{}
	refreshRoute string
	logger       Logger
}

var _ http.RoundTripper = (*Transport)(nil)

// TransportOption customizes a Transport.
type TransportOption func(*Transport)

// WithTransportBase sets the underlying RoundTripper (default
// http.DefaultTransport).
func WithTransportBase(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		if base != nil {
			t.base = base
		}
	}
}

// WithTransportLimiter installs a general request limiter; requests over the
// limit are rejected locally with a synthetic 429, no network I/O.
func WithTransportLimiter(limiter *RateLimiter) TransportOption {
	return func(t *Transport) {
		t.limiter = limiter
	}
}

// WithTransportLogger overrides the logger.
func WithTransportLogger(logger Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransport creates the intercepting RoundTripper bound to a session.
func NewTransport(session SessionTokenSource, cfg Config, opts ...TransportOption) *Transport {
	t := &Transport{
		base:         http.DefaultTransport,
		session:      session,
		publicRoutes: make(map[string]struct{}),
		refreshRoute: cfg.GetRoutes().Refresh,
		logger:       defLogger{},
	}

	for _, route := range cfg.GetPublicRoutes() {
		t.publicRoutes[route] = struct{}{}
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	path := req.URL.Path

	if t.limiter != nil {
		key := RouteKey(path)
		if result := t.limiter.CheckLimit(key); !result.Allowed {
			return syntheticTooManyRequests(req, result), nil
		}
		t.limiter.RecordAttempt(key)
	}

	out := req.Clone(ctx)
	out.Header.Set(headerRequestID, uuid.NewString())

	if !t.isPublic(path) {
		if token, ok := t.session.AccessToken(ctx); ok {
			out.Header.Set(headerAuthorization, bearerPrefix+token)
		}
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusServiceUnavailable:
		// Maintenance window: no retry, no logout.
		return resp, nil
	case http.StatusUnauthorized:
		return t.handleUnauthorized(req, resp)
	default:
		return resp, nil
	}
}

func (t *Transport) handleUnauthorized(req *http.Request, resp *http.Response) (*http.Response, error) {
	ctx := req.Context()
	path := req.URL.Path

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	apiErr := decodeAPIError(resp.StatusCode, body)
	if IsLogoutCode(apiErr.Code) {
		t.logger.Info("unauthorized with terminal code %s, logging out", apiErr.Code)
		t.session.ForceLogout(ctx)
		return resp, nil
	}

	if t.isPublic(path) || path == t.refreshRoute {
		return resp, nil
	}

	if !canReplay(req) {
		t.logger.Warn("unauthorized response on non-replayable request to %s", path)
		return resp, nil
	}

	token, err := t.session.Refresh(ctx)
	if err != nil {
		t.logger.Warn("token refresh failed, logging out: %v", err)
		t.session.ForceLogout(ctx)
		return resp, nil
	}

	retry := req.Clone(ctx)
	if req.GetBody != nil {
		retryBody, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = retryBody
	}
	retry.Header.Set(headerRequestID, uuid.NewString())
	retry.Header.Set(headerAuthorization, bearerPrefix+token)

	retryResp, err := t.base.RoundTrip(retry)
	if err != nil {
		return resp, nil
	}

	return retryResp, nil
}

func (t *Transport) isPublic(path string) bool {
	_, ok := t.publicRoutes[path]
	return ok
}

func canReplay(req *http.Request) bool {
	return req.Body == nil || req.GetBody != nil
}

func syntheticTooManyRequests(req *http.Request, result LimitResult) *http.Response {
	payload := fmt.Sprintf(`{"code":"rate_limited","retry_after":%d}`, result.RetryAfterSeconds)

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Retry-After", strconv.Itoa(result.RetryAfterSeconds))

	return &http.Response{
		Status:     "429 Too Many Requests",
		StatusCode: http.StatusTooManyRequests,
		Proto:      req.Proto,
		ProtoMajor: req.ProtoMajor,
		ProtoMinor: req.ProtoMinor,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(payload))),
		Request:    req,
	}
}
