package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/model"
)

// TokenRepo implements TokenRepository using PostgreSQL.
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
	const q = `
INSERT INTO jwt_tokens (jti, uid, issued_at, expires_at, claims)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, t.JTI, t.UID, t.IssuedAt.Unix(), t.ExpiresAt.Unix(), string(claims))
	if isFKViolation(err) {
		return errs.ErrNotFound
	}
	return err
}

// Get selects a token by jti; expired rows are returned unchanged.
func (r *TokenRepo) Get(ctx context.Context, jti string) (*model.Token, error) {
	const q = `SELECT jti, uid, issued_at, expires_at, claims FROM jwt_tokens WHERE jti=$1`
	row := r.db.Pool.QueryRow(ctx, q, jti)

	var t model.Token
	var issued, expires int64
	var claims string
	if err := row.Scan(&t.JTI, &t.UID, &issued, &expires, &claims); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
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
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM jwt_tokens WHERE jti=$1`, jti)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteByUser removes all tokens owned by uid; zero rows is not an error.
func (r *TokenRepo) DeleteByUser(ctx context.Context, uid int64) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM jwt_tokens WHERE uid=$1`, uid)
	return err
}
