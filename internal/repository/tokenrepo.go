package repository

import (
	"context"

	"github.com/and161185/authd/internal/model"
)

// TokenRepository stores issued session records keyed by jti.
type TokenRepository interface {
	// Insert stores a new token record. Returns errs.ErrNotFound if the
	// owning uid does not exist.
	Insert(ctx context.Context, t *model.Token) error
	// Get loads a token by jti; expired records are still returned.
	Get(ctx context.Context, jti string) (*model.Token, error)
	// Delete removes a token by jti. Returns errs.ErrNotFound if unknown.
	Delete(ctx context.Context, jti string) error
	// DeleteByUser removes every token the user owns; no-op at zero tokens.
	DeleteByUser(ctx context.Context, uid int64) error
}
