// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/switchboard layers. Edges (HTTP/gRPC)
// translate these into envelope codes; nothing below the edge formats
// user-facing messages.
var (
	// ErrValidation indicates malformed input the caller can correct and retry.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername indicates a username uniqueness violation at creation.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalidCredentials indicates failed authentication. Unknown user and
	// wrong password both map here so callers cannot enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrBackendUnreachable indicates the target connection could not be
	// opened or validated; a switch reporting it left the previous backend active.
	ErrBackendUnreachable = errors.New("backend unreachable")

	// ErrNotRemovable indicates an attempt to remove a protected connection.
	ErrNotRemovable = errors.New("connection not removable")

	// ErrActiveConnection indicates an attempt to remove the active connection.
	ErrActiveConnection = errors.New("connection is active")

	// ErrConflict indicates a concurrent switch was rejected by policy.
	ErrConflict = errors.New("switch already in progress")

	// ErrConfigType indicates a config value could not be coerced to its schema type.
	ErrConfigType = errors.New("config type mismatch")

	// ErrUnknownProcess indicates a process that never reported liveness.
	ErrUnknownProcess = errors.New("unknown process")
)
