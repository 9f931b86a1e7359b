package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/authd/internal/model"
	"github.com/and161185/authd/internal/repository"
)

// TokenIndex tracks issued session tokens by their jti.
type TokenIndex struct {
	gate BackendGate
	ttl  time.Duration
	now  func() time.Time
}

// NewTokenIndex constructs TokenIndex with the default token lifetime.
func NewTokenIndex(gate BackendGate, ttl time.Duration) *TokenIndex {
	return &TokenIndex{gate: gate, ttl: ttl, now: time.Now}
}

// Issue mints a token record for an existing user. The jti is a fresh v4
// uuid, unique by construction. A non-positive ttl falls back to the
// configured default lifetime. Fails with ErrNotFound when the uid does not
// exist.
func (s *TokenIndex) Issue(ctx context.Context, uid int64, ttl time.Duration, claims map[string]any) (model.Token, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Token{}, err
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now().UTC().Truncate(time.Second)
	t := model.Token{
		JTI:       jti.String(),
		UID:       uid,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Claims:    claims,
	}
	err = s.gate.WithBackend(ctx, func(b repository.Backend) error {
		// existence check aside, the insert's foreign key is the backstop
		if _, err := b.Users().GetByUID(ctx, uid); err != nil {
			return err
		}
		return b.Tokens().Insert(ctx, &t)
	})
	if err != nil {
		return model.Token{}, err
	}
	return t, nil
}

// Lookup returns the token record and whether it has passed its expiry.
// Expired records stay readable until revoked.
func (s *TokenIndex) Lookup(ctx context.Context, jti string) (model.Token, bool, error) {
	var t *model.Token
	err := s.gate.WithBackend(ctx, func(b repository.Backend) error {
		var err error
		t, err = b.Tokens().Get(ctx, jti)
		return err
	})
	if err != nil {
		return model.Token{}, false, err
	}
	return *t, t.Expired(s.now()), nil
}

// Revoke deletes one token by jti.
func (s *TokenIndex) Revoke(ctx context.Context, jti string) error {
	return s.gate.WithBackend(ctx, func(b repository.Backend) error {
		return b.Tokens().Delete(ctx, jti)
	})
}

// RevokeAll deletes every token issued to the user. Revoking for a user with
// no tokens succeeds; an unknown uid is ErrNotFound.
func (s *TokenIndex) RevokeAll(ctx context.Context, uid int64) error {
	return s.gate.WithBackend(ctx, func(b repository.Backend) error {
		if _, err := b.Users().GetByUID(ctx, uid); err != nil {
			return err
		}
		return b.Tokens().DeleteByUser(ctx, uid)
	})
}
