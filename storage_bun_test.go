package authclient_test

import (
	"path/filepath"
	"testing"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBunStorage(t *testing.T) *authclient.BunStorage {
	t.Helper()

	storage, err := authclient.NewBunStorage(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	return storage
}

func TestBunStorageRoundTrip(t *testing.T) {
	storage := newBunStorage(t)

	_, ok := storage.Get("auth.access_token")
	assert.False(t, ok)

	require.NoError(t, storage.Set("auth.access_token", "tok-1"))

	got, ok := storage.Get("auth.access_token")
	require.True(t, ok)
	assert.Equal(t, "tok-1", got)
}

func TestBunStorageUpsert(t *testing.T) {
	storage := newBunStorage(t)

	require.NoError(t, storage.Set("auth.access_token", "tok-1"))
	require.NoError(t, storage.Set("auth.access_token", "tok-2"))

	got, ok := storage.Get("auth.access_token")
	require.True(t, ok)
	assert.Equal(t, "tok-2", got)
}

func TestBunStorageDelete(t *testing.T) {
	storage := newBunStorage(t)

	require.NoError(t, storage.Set("auth.user", `{"email":"ada@example.com"}`))
	require.NoError(t, storage.Delete("auth.user"))

	_, ok := storage.Get("auth.user")
	assert.False(t, ok)

	// Deleting an absent key is not an error.
	assert.NoError(t, storage.Delete("auth.user"))
}

func TestBunStorageSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	storage, err := authclient.NewBunStorage(path)
	require.NoError(t, err)
	require.NoError(t, storage.Set("auth.refresh_token", "tok-persisted"))
	require.NoError(t, storage.Close())

	reopened, err := authclient.NewBunStorage(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Get("auth.refresh_token")
	require.True(t, ok)
	assert.Equal(t, "tok-persisted", got)
}

func TestBunStorageWorksAsSessionBackend(t *testing.T) {
	storage := newBunStorage(t)

	store := authclient.NewTokenStore(storage)
	store.SetTokens("access-1", "refresh-1")

	access, ok := store.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "access-1", access)

	store.Clear()
	_, ok = store.AccessToken()
	assert.False(t, ok)
}
