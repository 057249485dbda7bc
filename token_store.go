package authclient

import (
	"encoding/json"
	"strconv"
	"time"
)

// Fixed storage keys. Changing these orphans previously persisted sessions.
const (
	storageKeyAccessToken    = "auth.access_token"
	storageKeyRefreshToken   = "auth.refresh_token"
	storageKeyUser           = "auth.user"
	storageKeyResendCooldown = "auth.resend_cooldown_until"
)

// User is the last-known profile cached alongside the tokens. It is a
// display cache overwritten wholesale on login/confirmation, never merged;
// the server profile endpoint stays authoritative.
type User struct {
	Username           string `json:"username"`
	Email              string `json:"email"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	ActionsFreezedTill string `json:"actions_freezed_till,omitempty"`
}

// TokenStore is the single source of truth for persisted credentials and the
// cached user record. Every other component reads and writes tokens through
// it; nothing else touches the persistence medium. Its methods never fail
// outward: write errors are logged, corrupt reads degrade to "absent".
type TokenStore struct {
	storage Storage
	logger  Logger
	now     func() time.Time
}

// TokenStoreOption customizes a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithTokenStoreLogger overrides the logger.
func WithTokenStoreLogger(logger Logger) TokenStoreOption {
	return func(ts *TokenStore) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithTokenStoreClock injects a custom clock (useful for tests).
func WithTokenStoreClock(clock func() time.Time) TokenStoreOption {
	return func(ts *TokenStore) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// NewTokenStore creates a TokenStore over the given persistence backend.
func NewTokenStore(storage Storage, opts ...TokenStoreOption) *TokenStore {
	ts := &TokenStore{
		storage: storage,
		logger:  defLogger{},
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(ts)
	}

	return ts
}

// AccessToken returns the persisted access token, if any.
func (ts *TokenStore) AccessToken() (string, bool) {
	return ts.storage.Get(storageKeyAccessToken)
}

// RefreshToken returns the persisted refresh token, if any.
func (ts *TokenStore) RefreshToken() (string, bool) {
	return ts.storage.Get(storageKeyRefreshToken)
}

// User returns the cached user record. A corrupt stored value is purged and
// reported as absent rather than surfaced as an error.
func (ts *TokenStore) User() (*User, bool) {
	raw, ok := ts.storage.Get(storageKeyUser)
	if !ok {
		return nil, false
	}

	user := &User{}
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		ts.logger.Warn("purging corrupt cached user record: %v", err)
		if derr := ts.storage.Delete(storageKeyUser); derr != nil {
			ts.logger.Error("unable to purge cached user record: %v", derr)
		}
		return nil, false
	}

	return user, true
}

// SetTokens overwrites both persisted tokens.
func (ts *TokenStore) SetTokens(access, refresh string) {
	if err := ts.storage.Set(storageKeyAccessToken, access); err != nil {
		ts.logger.Error("unable to persist access token: %v", err)
	}
	if err := ts.storage.Set(storageKeyRefreshToken, refresh); err != nil {
		ts.logger.Error("unable to persist refresh token: %v", err)
	}
}

// SetUser overwrites the cached user record.
func (ts *TokenStore) SetUser(user *User) {
	if user == nil {
		return
	}

	raw, err := json.Marshal(user)
	if err != nil {
		ts.logger.Error("unable to serialize user record: %v", err)
		return
	}

	if err := ts.storage.Set(storageKeyUser, string(raw)); err != nil {
		ts.logger.Error("unable to persist user record: %v", err)
	}
}

// Clear removes tokens and the cached user record.
func (ts *TokenStore) Clear() {
	for _, key := range []string{storageKeyAccessToken, storageKeyRefreshToken, storageKeyUser} {
		if err := ts.storage.Delete(key); err != nil {
			ts.logger.Error("unable to clear client state %s: %v", key, err)
		}
	}
}

// HasValidRefreshToken reports whether a refresh token is stored and its exp
// claim has not passed. This is the startup "is a session still alive" check.
func (ts *TokenStore) HasValidRefreshToken() bool {
	refresh, ok := ts.RefreshToken()
	if !ok || refresh == "" {
		return false
	}
	return !IsTokenExpired(refresh, ts.now())
}

// ResendCooldownUntil returns the persisted resend-confirmation cooldown
// deadline, if one is active. The stamp survives reloads so a user cannot
// reset the cooldown by restarting the app.
func (ts *TokenStore) ResendCooldownUntil() (time.Time, bool) {
	raw, ok := ts.storage.Get(storageKeyResendCooldown)
	if !ok {
		return time.Time{}, false
	}

	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		ts.logger.Warn("purging corrupt resend cooldown stamp: %v", err)
		if derr := ts.storage.Delete(storageKeyResendCooldown); derr != nil {
			ts.logger.Error("unable to purge resend cooldown stamp: %v", derr)
		}
		return time.Time{}, false
	}

	return time.Unix(unix, 0), true
}

// SetResendCooldown persists the resend cooldown deadline.
func (ts *TokenStore) SetResendCooldown(until time.Time) {
	if err := ts.storage.Set(storageKeyResendCooldown, strconv.FormatInt(until.Unix(), 10)); err != nil {
		ts.logger.Error("unable to persist resend cooldown stamp: %v", err)
	}
}
