// Package service contains application services for credentials and tokens.
//
// Services never hold a backend directly; every operation runs through a
// BackendGate so it executes entirely against whichever backend is active
// when it starts, even if a switch lands mid-request.
package service

import (
	"context"
	"errors"
	"fmt"

	pkgcrypto "github.com/and161185/authd/internal/crypto"
	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/model"
	"github.com/and161185/authd/internal/repository"
)

// BackendGate runs fn against the currently active backend under the read
// side of the switch gate. Implemented by switchboard.Switchboard.
type BackendGate interface {
	WithBackend(ctx context.Context, fn func(repository.Backend) error) error
}

// CredentialStore manages user accounts and password verification.
type CredentialStore struct {
	gate   BackendGate
	hasher pkgcrypto.Hasher
}

// NewCredentialStore constructs CredentialStore with required dependencies.
func NewCredentialStore(gate BackendGate, hasher pkgcrypto.Hasher) *CredentialStore {
	return &CredentialStore{gate: gate, hasher: hasher}
}

// CreateUser registers a new account and returns it with its assigned uid.
// The plaintext password is hashed before it crosses the repository boundary
// and is never stored or logged.
func (s *CredentialStore) CreateUser(ctx context.Context, username, password string) (model.User, error) {
	if username == "" {
		return model.User{}, fmt.Errorf("%w: username must not be empty", errs.ErrValidation)
	}
	if password == "" {
		return model.User{}, fmt.Errorf("%w: password must not be empty", errs.ErrValidation)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.User{}, err
	}

	var u model.User
	err = s.gate.WithBackend(ctx, func(b repository.Backend) error {
		uid, err := b.Users().Create(ctx, username, hash)
		if err != nil {
			return err
		}
		u = model.User{UID: uid, Username: username}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// DeleteUser removes the account and every token issued to it.
func (s *CredentialStore) DeleteUser(ctx context.Context, uid int64) error {
	return s.gate.WithBackend(ctx, func(b repository.Backend) error {
		return b.Users().Delete(ctx, uid)
	})
}

// ListUsers returns all accounts with the identifiers of their live tokens.
func (s *CredentialStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.gate.WithBackend(ctx, func(b repository.Backend) error {
		var err error
		users, err = b.Users().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// VerifyCredentials checks a username/password pair. Unknown username and
// wrong password both come back as ErrInvalidCredentials, and the unknown
// path still burns a hash verification so the two are not distinguishable by
// timing.
func (s *CredentialStore) VerifyCredentials(ctx context.Context, username, password string) (model.User, error) {
	var u *model.User
	err := s.gate.WithBackend(ctx, func(b repository.Backend) error {
		var err error
		u, err = b.Users().GetByUsername(ctx, username)
		return err
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			pkgcrypto.DummyVerify(password)
			return model.User{}, errs.ErrInvalidCredentials
		}
		return model.User{}, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return model.User{}, errs.ErrInvalidCredentials
	}
	return model.User{UID: u.UID, Username: u.Username}, nil
}
