package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/model"
)

// TokenRepo implements TokenRepository over database/sql (sqlite, mysql).
type TokenRepo struct{ db *DB }

// NewTokenRepo constructs a token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

// Insert stores a new token row; a foreign key violation on uid maps to ErrNotFound.
func (r *TokenRepo) Insert(ctx context.Context, t *model.Token) error {
	claims := []byte("{}")
	if t.Claims != nil {
		var err error
		if claims, err = json.Marshal(t.Claims); err != nil {
			return err
		}
	}
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO jwt_tokens (jti, uid, issued_at, expires_at, claims) VALUES (?, ?, ?, ?, ?)`,
		t.JTI, t.UID, t.IssuedAt.Unix(), t.ExpiresAt.Unix(), string(claims))
	if isFKViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// Get selects a token by jti; expired rows are returned unchanged.
func (r *TokenRepo) Get(ctx context.Context, jti string) (*model.Token, error) {
	row := r.db.SQL.QueryRowContext(ctx,
		`SELECT jti, uid, issued_at, expires_at, claims FROM jwt_tokens WHERE jti = ?`, jti)

	var t model.Token
	var issued, expires int64
	var claims string
	if err := row.Scan(&t.JTI, &t.UID, &issued, &expires, &claims); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	t.IssuedAt = time.Unix(issued, 0).UTC()
	t.ExpiresAt = time.Unix(expires, 0).UTC()
	if claims != "" && claims != "{}" {
		if err := json.Unmarshal([]byte(claims), &t.Claims); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// Delete removes a token by jti.
func (r *TokenRepo) Delete(ctx context.Context, jti string) error {
	res, err := r.db.SQL.ExecContext(ctx, `DELETE FROM jwt_tokens WHERE jti = ?`, jti)
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
	return nil
}

// DeleteByUser removes all tokens owned by uid; zero rows is not an error.
func (r *TokenRepo) DeleteByUser(ctx context.Context, uid int64) error {
	_, err := r.db.SQL.ExecContext(ctx, `DELETE FROM jwt_tokens WHERE uid = ?`, uid)
	return err
}
