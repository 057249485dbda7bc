package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultRefreshThreshold is how close to expiry an access token may get
// before the session manager refreshes it preemptively.
const DefaultRefreshThreshold = 10 * time.Minute

// TokenExpiry decodes the exp claim of a JWT without verifying its
// signature. The decode is a UX hint only; the server remains the authority
// on token validity.
func TokenExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, goerrors.Wrap(err, goerrors.CategoryValidation, "unable to decode token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, goerrors.New("token has no usable exp claim", goerrors.CategoryValidation)
	}

	return exp.Time, nil
}

// IsTokenExpired reports whether raw's exp claim is at or before now. A
// token that cannot be decoded is treated as expired.
func IsTokenExpired(raw string, now time.Time) bool {
	exp, err := TokenExpiry(raw)
	if err != nil {
		return true
	}
	return !exp.After(now)
}

// IsExpiringSoon reports whether raw expires within threshold of now. The
// boundary is inclusive: a token exactly threshold away counts as expiring.
// A token that cannot be decoded is conservatively treated as expiring,
// which forces a refresh attempt.
func IsExpiringSoon(raw string, now time.Time, threshold time.Duration) bool {
	exp, err := TokenExpiry(raw)
	if err != nil {
		return true
	}
	return exp.Sub(now) <= threshold
}
