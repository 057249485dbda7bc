package authclient

// User-facing notification messages. Hosts that localize should map on the
// AuthResult / boolean outcomes instead of these strings.
const (
	msgLoginWelcome        = "welcome back"
	msgLoginFailed         = "unable to log in, please try again"
	msgWrongCredentials    = "wrong email or password"
	msgPasswordResetNeeded = "you must reset your password before logging in"
	msgAccountBlocked      = "this account has been blocked"
	msgInvalidData         = "the submitted data is invalid"
	msgInvalidOTP          = "the one-time code is incorrect"
	msgConfirmationSent    = "confirmation email sent"
	msgConfirmationBusy    = "a confirmation email is already on its way"
	msgResendFailed        = "unable to resend the confirmation email"
	msgEmailConfirmed      = "email confirmed"
	msgConfirmFailed       = "unable to confirm your email, please try again"
	msgTooManyAttempts     = "too many attempts, try again in %d seconds"
	msgPasswordMismatch    = "passwords do not match"
	msgInvalidEmail        = "please provide a valid email address"
	msgRegistered          = "account created, check your inbox to confirm your email"
	msgBadRegistrationData = "unable to register with the submitted data"
	msgRegistrationFailed  = "registration failed, please try again"
	msgResetEmailSent      = "password reset email sent"
	msgResetLinkInvalid    = "this password reset link is invalid or has expired"
	msgResetFailed         = "unable to reset the password"
	msgPasswordChanged     = "password updated"
	msgPasswordChangeError = "unable to change the password"
	msgLoggedOut           = "logged out"
)

// changePasswordMessages maps backend change-password error codes to
// user-facing messages. Codes are matched by exact string value.
var changePasswordMessages = map[string]string{
	"old_password_incorrect":    "the current password is incorrect",
	"password_too_common":       "the new password is too common",
	"password_too_short":        "the new password is too short",
	"password_entirely_numeric": "the new password cannot be entirely numeric",
	"password_similar_to_user":  "the new password is too similar to your personal data",
}

func lookupChangePasswordMessage(code string) string {
	if msg, ok := changePasswordMessages[code]; ok {
		return msg
	}
	return msgPasswordChangeError
}
