package authclient

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// ClientState is one persisted key-value entry.
type ClientState struct {
	bun.BaseModel `bun:"table:client_state,alias:cst"`
	Key           string `bun:"key,pk" json:"key"`
	Value         string `bun:"value,notnull" json:"value"`
}

// BunStorage is a Storage backend persisted to SQLite through bun, so
// tokens, the cached user record, and resend cooldowns survive process
// restarts. Storage errors are logged and degrade to "absent" on reads; they
// never surface to token-path callers.
type BunStorage struct {
	db      *bun.DB
	logger  Logger
	timeout time.Duration
}

var _ Storage = (*BunStorage)(nil)

// BunStorageOption customizes a BunStorage.
type BunStorageOption func(*BunStorage)

// WithBunStorageLogger overrides the logger.
func WithBunStorageLogger(logger Logger) BunStorageOption {
	return func(s *BunStorage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewBunStorage opens (creating if needed) a SQLite database at dsn and
// ensures the client_state table exists. Use ":memory:" for an ephemeral
// database.
func NewBunStorage(dsn string, opts ...BunStorageOption) (*BunStorage, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to open client state database")
	}

	storage := &BunStorage{
		db:      bun.NewDB(sqldb, sqlitedialect.New()),
		logger:  defLogger{},
		timeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(storage)
	}

	ctx, cancel := storage.opCtx()
	defer cancel()

	if _, err := storage.db.NewCreateTable().
		Model((*ClientState)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to create client_state table")
	}

	return storage, nil
}

func (s *BunStorage) Get(key string) (string, bool) {
	ctx, cancel := s.opCtx()
	defer cancel()

	entry := &ClientState{}
	err := s.db.NewSelect().
		Model(entry).
		Where("key = ?", key).
		Scan(ctx)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("client state read failed for %s: %v", key, err)
		}
		return "", false
	}

	return entry.Value, true
}

func (s *BunStorage) Set(key, value string) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	entry := &ClientState{Key: key, Value: value}
	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to persist client state")
	}

	return nil
}

func (s *BunStorage) Delete(key string) error {
	ctx, cancel := s.opCtx()
	defer cancel()

	_, err := s.db.NewDelete().
		Model((*ClientState)(nil)).
		Where("key = ?", key).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to delete client state")
	}

	return nil
}

// Close releases the underlying database handle.
func (s *BunStorage) Close() error {
	return s.db.Close()
}

func (s *BunStorage) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
