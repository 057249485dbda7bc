package authclient_test

import (
	"errors"
	"testing"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	store := authclient.NewTokenStore(authclient.NewMemoryStorage())

	_, ok := store.AccessToken()
	assert.False(t, ok)

	store.SetTokens("access-1", "refresh-1")

	access, ok := store.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "access-1", access)

	refresh, ok := store.RefreshToken()
	require.True(t, ok)
	assert.Equal(t, "refresh-1", refresh)

	// Overwrite wholesale.
	store.SetTokens("access-2", "refresh-2")
	access, _ = store.AccessToken()
	refresh, _ = store.RefreshToken()
	assert.Equal(t, "access-2", access)
	assert.Equal(t, "refresh-2", refresh)
}

func TestTokenStoreUserRoundTrip(t *testing.T) {
	store := authclient.NewTokenStore(authclient.NewMemoryStorage())

	_, ok := store.User()
	assert.False(t, ok)

	store.SetUser(&authclient.User{
		Username:  "octo",
		Email:     "octo@example.com",
		FirstName: "Octo",
		LastName:  "Cat",
	})

	user, ok := store.User()
	require.True(t, ok)
	assert.Equal(t, "octo", user.Username)
	assert.Equal(t, "octo@example.com", user.Email)
}

func TestTokenStorePurgesCorruptUser(t *testing.T) {
	storage := authclient.NewMemoryStorage()
	require.NoError(t, storage.Set("auth.user", "{not-json"))

	store := authclient.NewTokenStore(storage)

	_, ok := store.User()
	assert.False(t, ok)

	// The corrupt entry is gone, not just ignored.
	_, ok = storage.Get("auth.user")
	assert.False(t, ok)
}

func TestTokenStoreClear(t *testing.T) {
	storage := authclient.NewMemoryStorage()
	store := authclient.NewTokenStore(storage)

	store.SetTokens("access", "refresh")
	store.SetUser(&authclient.User{Username: "octo"})

	store.Clear()

	_, ok := store.AccessToken()
	assert.False(t, ok)
	_, ok = store.RefreshToken()
	assert.False(t, ok)
	_, ok = store.User()
	assert.False(t, ok)
}

func TestTokenStoreClearSurvivesStorageErrors(t *testing.T) {
	storage := &FailingStorage{
		Storage:   authclient.NewMemoryStorage(),
		DeleteErr: errors.New("disk on fire"),
	}
	store := authclient.NewTokenStore(storage)

	// Must not panic or surface the error.
	store.Clear()
}

func TestHasValidRefreshToken(t *testing.T) {
	now := time.Unix(time.Now().Unix(), 0)

	tests := []struct {
		name    string
		refresh string
		valid   bool
	}{
		{"no token", "", false},
		{"valid token", makeToken(t, now.Add(24*time.Hour)), true},
		{"expired token", makeToken(t, now.Add(-time.Minute)), false},
		{"garbage token", "garbage", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := authclient.NewTokenStore(authclient.NewMemoryStorage(),
				authclient.WithTokenStoreClock(func() time.Time { return now }),
			)
			if tc.refresh != "" {
				store.SetTokens("access", tc.refresh)
			}
			assert.Equal(t, tc.valid, store.HasValidRefreshToken())
		})
	}
}

func TestResendCooldownRoundTrip(t *testing.T) {
	store := authclient.NewTokenStore(authclient.NewMemoryStorage())

	_, ok := store.ResendCooldownUntil()
	assert.False(t, ok)

	until := time.Unix(time.Now().Add(time.Minute).Unix(), 0)
	store.SetResendCooldown(until)

	got, ok := store.ResendCooldownUntil()
	require.True(t, ok)
	assert.True(t, got.Equal(until))
}

func TestResendCooldownPurgesCorruptStamp(t *testing.T) {
	storage := authclient.NewMemoryStorage()
	require.NoError(t, storage.Set("auth.resend_cooldown_until", "not-a-number"))

	store := authclient.NewTokenStore(storage)

	_, ok := store.ResendCooldownUntil()
	assert.False(t, ok)

	_, ok = storage.Get("auth.resend_cooldown_until")
	assert.False(t, ok)
}
