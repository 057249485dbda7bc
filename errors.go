package authclient

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeRefreshFailed marks a failed silent token refresh.
	TextCodeRefreshFailed = "REFRESH_FAILED"
	// TextCodeNoRefreshToken marks a refresh attempted without a stored token.
	TextCodeNoRefreshToken = "NO_REFRESH_TOKEN"
)

// ErrRefreshFailed is returned when the refresh endpoint rejects the stored
// refresh token; callers treat it as a forced-logout condition.
var ErrRefreshFailed = goerrors.New("token refresh failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeRefreshFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoRefreshToken is returned when a refresh is required but no refresh
// token is stored.
var ErrNoRefreshToken = goerrors.New("no refresh token available", goerrors.CategoryAuth).
	WithTextCode(TextCodeNoRefreshToken).
	WithCode(goerrors.CodeUnauthorized)

// Backend error codes on a 401 that make the local session unrecoverable: a
// refresh cannot help, so the transport forces logout instead of retrying.
var logoutErrorCodes = map[string]struct{}{
	"user_not_found":  {},
	"user_inactive":   {},
	"token_not_valid": {},
}

// IsLogoutCode reports whether a server-supplied 401 error code should force
// an immediate local logout rather than a refresh attempt.
func IsLogoutCode(code string) bool {
	_, ok := logoutErrorCodes[code]
	return ok
}

// Login error types the backend declares in its error payload. These are
// matched by exact string value, not HTTP status.
const (
	errTypeWrongData      = "wrong_data"
	errTypeResetPassword  = "reset_psw"
	errTypeAccountBlocked = "account_block"
	errTypeInvalid        = "invalid"
	errTypeTwoFactor      = "go2fa"
)

// codeConfirmationInProgress is the backend's "a confirmation email was
// already requested and is still being processed" signal on the resend route.
const codeConfirmationInProgress = "confirmation_in_progress"
