package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/model"
)

// UserRepo implements UserRepository over database/sql (sqlite, mysql).
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create allocates the next uid from the uid_counter row and inserts the
// user in one transaction. The counter only moves forward, so a uid is
// never reissued after its user is deleted. The UPDATE takes a row lock on
// MySQL, serializing concurrent creates; on sqlite the single connection
// does the same.
func (r *UserRepo) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE uid_counter SET next_uid = next_uid + 1 WHERE id = 1`); err != nil {
		return 0, err
	}
	var uid int64
	if err := tx.QueryRowContext(ctx,
		`SELECT next_uid - 1 FROM uid_counter WHERE id = 1`).Scan(&uid); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (uid, username, password_hash) VALUES (?, ?, ?)`,
		uid, username, passwordHash); err != nil {
		if isUniqueViolation(err, "username") {
			return 0, errs.ErrDuplicateUsername
		}
		return 0, err
	}
	return uid, tx.Commit()
}

// GetByUsername selects a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.db.SQL.QueryRowContext(ctx,
		`SELECT uid, username, password_hash FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// GetByUID selects a user by uid.
func (r *UserRepo) GetByUID(ctx context.Context, uid int64) (*model.User, error) {
	row := r.db.SQL.QueryRowContext(ctx,
		`SELECT uid, username, password_hash FROM users WHERE uid = ?`, uid)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.UID, &u.Username, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// List returns all users in uid order with their jti reverse index populated.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT uid, username, password_hash FROM users ORDER BY uid`)
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

	trows, err := r.db.SQL.QueryContext(ctx,
		`SELECT uid, jti FROM jwt_tokens ORDER BY issued_at, jti`)
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
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jwt_tokens WHERE uid = ?`, uid); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE uid = ?`, uid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return tx.Commit()
}
