package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// maxErrorBodyBytes bounds how much of an error response is buffered for
// envelope decoding.
const maxErrorBodyBytes = 1 << 20

// APIClient speaks the backend auth wire contract: JSON over HTTPS, one POST
// per operation. It performs no retries and holds no session state; recovery
// policy lives in Transport and SessionManager.
type APIClient struct {
	http    *http.Client
	baseURL string
	routes  Routes
	logger  Logger
}

// APIClientOption customizes an APIClient.
type APIClientOption func(*APIClient)

// WithHTTPClient replaces the underlying HTTP client. This is how the
// session manager injects the intercepted client.
func WithHTTPClient(client *http.Client) APIClientOption {
	return func(c *APIClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithAPIClientLogger overrides the logger.
func WithAPIClientLogger(logger Logger) APIClientOption {
	return func(c *APIClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewAPIClient creates a client for the configured backend.
func NewAPIClient(cfg Config, opts ...APIClientOption) *APIClient {
	client := &APIClient{
		http:    &http.Client{Timeout: cfg.GetHTTPTimeout()},
		baseURL: strings.TrimRight(cfg.GetBaseURL(), "/"),
		routes:  cfg.GetRoutes(),
		logger:  defLogger{},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Login exchanges credentials for a token pair and user record.
func (c *APIClient) Login(ctx context.Context, creds Credentials) (*loginResponse, error) {
	out := &loginResponse{}
	if err := c.postJSON(ctx, c.routes.Login, creds, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Logout tells the backend to invalidate the session. Best effort; callers
// clear local state regardless.
func (c *APIClient) Logout(ctx context.Context) error {
	return c.postJSON(ctx, c.routes.Logout, nil, nil)
}

// Refresh exchanges a refresh token for a fresh pair.
func (c *APIClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	out := &TokenPair{}
	if err := c.postJSON(ctx, c.routes.Refresh, refreshRequest{Refresh: refreshToken}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Register creates a new account. Registration does not log the user in.
func (c *APIClient) Register(ctx context.Context, data RegistrationData) error {
	return c.postJSON(ctx, c.routes.Signup, data, nil)
}

// ResendConfirmation asks the backend to send the confirmation email again.
func (c *APIClient) ResendConfirmation(ctx context.Context, token string) (*resendResponse, error) {
	out := &resendResponse{}
	if err := c.postJSON(ctx, c.routes.ResendConfirmation, resendRequest{Token: token}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmEmail exchanges a confirmation code; the response may include a
// fresh token pair and user record.
func (c *APIClient) ConfirmEmail(ctx context.Context, code string) (*confirmResponse, error) {
	out := &confirmResponse{}
	if err := c.postJSON(ctx, c.routes.ConfirmEmail, confirmRequest{Key: code}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestPasswordReset asks for a reset link to be emailed.
func (c *APIClient) RequestPasswordReset(ctx context.Context, email string) error {
	return c.postJSON(ctx, c.routes.PasswordReset, passwordResetRequest{Email: email}, nil)
}

// ConfirmPasswordReset finalizes a reset started from an emailed link.
func (c *APIClient) ConfirmPasswordReset(ctx context.Context, data PasswordResetData) error {
	return c.postJSON(ctx, c.routes.PasswordResetConfirm, data, nil)
}

// ChangePassword changes the logged-in user's password.
func (c *APIClient) ChangePassword(ctx context.Context, data PasswordChangeData) error {
	return c.postJSON(ctx, c.routes.PasswordChange, data, nil)
}

func (c *APIClient) postJSON(ctx context.Context, route string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("request to %s failed: %v", route, err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return decodeAPIError(resp.StatusCode, raw)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("unable to decode response from %s: %v", route, err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "unable to decode response")
	}

	return nil
}
