// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/authd/internal/model"
)

// UserRepository provides CRUD access for user records on one backend.
type UserRepository interface {
	// Create inserts a new user and allocates the next uid (monotonic,
	// never reused within a backend). Returns errs.ErrDuplicateUsername on a
	// username uniqueness violation.
	Create(ctx context.Context, username, passwordHash string) (int64, error)
	// GetByUsername loads a user by exact, case-sensitive username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByUID loads a user by uid.
	GetByUID(ctx context.Context, uid int64) (*model.User, error)
	// List returns all users with their token reverse index populated.
	List(ctx context.Context) ([]model.User, error)
	// Delete removes the user and every token it owns in one transaction.
	// Returns errs.ErrNotFound if the uid is absent.
	Delete(ctx context.Context, uid int64) error
}
