package authclient_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	return signed
}

func TestTokenExpiry(t *testing.T) {
	// Truncate to whole seconds: exp claims have second resolution.
	now := time.Unix(time.Now().Unix(), 0)
	exp := now.Add(time.Hour)

	got, err := authclient.TokenExpiry(makeToken(t, exp))
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))
}

func TestTokenExpiryGarbage(t *testing.T) {
	_, err := authclient.TokenExpiry("not-a-jwt")
	assert.Error(t, err)
}

func TestIsTokenExpired(t *testing.T) {
	now := time.Unix(time.Now().Unix(), 0)

	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{"future exp", makeToken(t, now.Add(time.Hour)), false},
		{"past exp", makeToken(t, now.Add(-time.Hour)), true},
		{"garbage token", "garbage", true},
		{"empty token", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expired, authclient.IsTokenExpired(tc.token, now))
		})
	}
}

func TestIsExpiringSoon(t *testing.T) {
	now := time.Unix(time.Now().Unix(), 0)
	threshold := authclient.DefaultRefreshThreshold

	tests := []struct {
		name     string
		token    string
		expiring bool
	}{
		{"well beyond threshold", makeToken(t, now.Add(threshold+time.Hour)), false},
		{"one second past threshold", makeToken(t, now.Add(threshold+time.Second)), false},
		{"exactly at threshold", makeToken(t, now.Add(threshold)), true},
		{"inside threshold", makeToken(t, now.Add(time.Minute)), true},
		{"already expired", makeToken(t, now.Add(-time.Minute)), true},
		{"garbage token", "garbage", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expiring, authclient.IsExpiringSoon(tc.token, now, threshold))
		})
	}
}
