package authclient

import (
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Credentials is the login request body. GoogleCode carries an optional
// one-time 2FA code.
type Credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	GoogleCode string `json:"googlecode,omitempty"`
}

func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	)
}

// RegistrationData is the signup request body. The backend expects the
// password twice; the client checks the pair matches before any network I/O.
type RegistrationData struct {
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

func (r RegistrationData) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password1, validation.Required),
		validation.Field(
			&r.Password2,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password1)),
		),
	)
}

// PasswordResetData finalizes a password reset begun from an emailed link.
type PasswordResetData struct {
	UID          string `json:"uid"`
	Token        string `json:"token"`
	NewPassword1 string `json:"new_password1"`
	NewPassword2 string `json:"new_password2"`
}

func (p PasswordResetData) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.UID, validation.Required),
		validation.Field(&p.Token, validation.Required),
		validation.Field(&p.NewPassword1, validation.Required),
		validation.Field(
			&p.NewPassword2,
			validation.Required,
			validation.By(ValidateStringEquals(p.NewPassword1)),
		),
	)
}

// PasswordChangeData changes the password of the logged-in user.
type PasswordChangeData struct {
	OldPassword  string `json:"old_password"`
	NewPassword1 string `json:"new_password1"`
	NewPassword2 string `json:"new_password2"`
}

func (p PasswordChangeData) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OldPassword, validation.Required),
		validation.Field(&p.NewPassword1, validation.Required),
		validation.Field(
			&p.NewPassword2,
			validation.Required,
			validation.By(ValidateStringEquals(p.NewPassword1)),
		),
	)
}

// ValidateStringEquals builds a rule asserting a field equals str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// TokenPair is the credential pair issued on login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type resendRequest struct {
	Token string `json:"token"`
}

// resendResponse is the resend-confirmation body. The backend signals
// success through the boolean Status flag, not the HTTP status.
type resendResponse struct {
	Status bool   `json:"Status"`
	Code   string `json:"code,omitempty"`
}

type confirmRequest struct {
	Key string `json:"key"`
}

type confirmResponse struct {
	Detail  string `json:"detail"`
	Access  string `json:"access,omitempty"`
	Refresh string `json:"refresh,omitempty"`
	User    *User  `json:"user,omitempty"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// APIError is a non-2xx response from the backend with its error envelope
// decoded. The backend multiplexes several shapes over one envelope; which
// fields are populated depends on the route and failure.
type APIError struct {
	StatusCode int `json:"-"`

	// Kind and Messages carry `{type, message: [..]}` login failures.
	Kind     string   `json:"type,omitempty"`
	Messages []string `json:"message,omitempty"`
	// Token carries the email-confirmation token a login against an
	// unconfirmed account returns inline with the error. Password reset
	// confirmation reuses the same field for reset-link token errors.
	Token []string `json:"token,omitempty"`
	// Field-level validation lists.
	Email          []string `json:"email,omitempty"`
	UID            []string `json:"uid,omitempty"`
	NonFieldErrors []string `json:"non_field_errors,omitempty"`
	// Code carries single-code failures (change password, 401 responses).
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Kind)
	}
	if e.Code != "" {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Code)
	}
	if e.Detail != "" {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error (%d)", e.StatusCode)
}

// ConfirmToken returns the inline email-confirmation token, if the error
// carried one.
func (e *APIError) ConfirmToken() string {
	if len(e.Token) == 0 {
		return ""
	}
	return e.Token[0]
}

// decodeAPIError builds an APIError from a response body. A body that is not
// valid JSON still yields a usable error carrying the status code.
func decodeAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	if len(body) > 0 {
		_ = json.Unmarshal(body, apiErr)
	}

	return apiErr
}
