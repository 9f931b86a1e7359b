package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user. The uid comes from the table's identity
// sequence, which never reissues a value even after rows are deleted. A
// violation on the username constraint maps to ErrDuplicateUsername.
func (r *UserRepo) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	const q = `INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING uid`
	var uid int64
	err := r.db.Pool.QueryRow(ctx, q, username, passwordHash).Scan(&uid)
	switch {
	case err == nil:
		return uid, nil
	case isUniqueViolation(err, "users_username_key"):
		return 0, errs.ErrDuplicateUsername
	default:
		return 0, err
	}
}

// GetByUsername selects a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT uid, username, password_hash FROM users WHERE username=$1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, username))
}

// GetByUID selects a user by uid.
func (r *UserRepo) GetByUID(ctx context.Context, uid int64) (*model.User, error) {
	const q = `SELECT uid, username, password_hash FROM users WHERE uid=$1`
	return r.scanUser(r.db.Pool.QueryRow(ctx, q, uid))
}

func (r *UserRepo) scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.UID, &u.Username, &u.PasswordHash); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// List returns all users in uid order with their jti reverse index populated.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	const qUsers = `SELECT uid, username, password_hash FROM users ORDER BY uid`
	rows, err := r.db.Pool.Query(ctx, qUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	index := map[int64]int{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.UID, &u.Username, &u.PasswordHash); err != nil {
			return nil, err
		}
		index[u.UID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const qTokens = `SELECT uid, jti FROM jwt_tokens ORDER BY issued_at, jti`
	trows, err := r.db.Pool.Query(ctx, qTokens)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var uid int64
		var jti string
		if err := trows.Scan(&uid, &jti); err != nil {
			return nil, err
		}
		if i, ok := index[uid]; ok {
			users[i].TokenIDs = append(users[i].TokenIDs, jti)
		}
	}
	return users, trows.Err()
}

// Delete removes the user's tokens and the user row in one transaction.
func (r *UserRepo) Delete(ctx context.Context, uid int64) error {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM jwt_tokens WHERE uid=$1`, uid); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE uid=$1`, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return tx.Commit(ctx)
}
