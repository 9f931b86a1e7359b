package postgres

import (
	"context"

	"github.com/and161185/authd/internal/repository"
)

// Backend serves the repository bundle over one pgx pool.
type Backend struct {
	db     *DB
	users  *UserRepo
	tokens *TokenRepo
}

var _ repository.Backend = (*Backend)(nil)

// Open connects to the DSN and validates the connection.
func Open(ctx context.Context, dsn string) (*Backend, error) {
	db, err := New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	b := NewBackend(db)
	if err := b.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewBackend wraps an existing DB (tests inject pgxmock through here).
func NewBackend(db *DB) *Backend {
	return &Backend{db: db, users: NewUserRepo(db), tokens: NewTokenRepo(db)}
}

func (b *Backend) Users() repository.UserRepository   { return b.users }
func (b *Backend) Tokens() repository.TokenRepository { return b.tokens }

// Ping validates the pool connection.
func (b *Backend) Ping(ctx context.Context) error { return b.db.Pool.Ping(ctx) }

// Close releases the pool.
func (b *Backend) Close() error {
	b.db.Close()
	return nil
}
