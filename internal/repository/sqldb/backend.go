package sqldb

import (
	"context"
	"database/sql"

	"github.com/and161185/authd/internal/model"
	"github.com/and161185/authd/internal/repository"
)

// Backend serves the repository bundle over one database/sql handle.
type Backend struct {
	db     *DB
	users  *UserRepo
	tokens *TokenRepo
}

var _ repository.Backend = (*Backend)(nil)

// Open connects a sqlite or mysql backend and validates the connection.
func Open(ctx context.Context, desc model.ConnectionDescriptor) (*Backend, error) {
	driver, err := driverFor(desc.Kind)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driver, desc.DSN())
	if err != nil {
		return nil, err
	}
	if desc.Kind == model.KindSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent serving processes.
		sqlDB.SetMaxOpenConns(1)
	}
	b := NewBackend(&DB{SQL: sqlDB, Kind: desc.Kind})
	if err := b.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return b, nil
}

// NewBackend wraps an existing handle (tests inject in-memory sqlite through here).
func NewBackend(db *DB) *Backend {
	return &Backend{db: db, users: NewUserRepo(db), tokens: NewTokenRepo(db)}
}

func (b *Backend) Users() repository.UserRepository   { return b.users }
func (b *Backend) Tokens() repository.TokenRepository { return b.tokens }

// DB exposes the raw handle for the migration runner.
func (b *Backend) DB() *sql.DB { return b.db.SQL }

// Ping validates the connection.
func (b *Backend) Ping(ctx context.Context) error { return b.db.SQL.PingContext(ctx) }

// Close releases the handle.
func (b *Backend) Close() error { return b.db.SQL.Close() }
