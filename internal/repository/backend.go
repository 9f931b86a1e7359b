package repository

import "context"

// Backend bundles the repositories served by one open database connection.
// The switchboard owns the lifecycle: it opens a backend when a connection
// becomes active and closes it after a switch drains.
type Backend interface {
	Users() UserRepository
	Tokens() TokenRepository
	// Ping validates the underlying connection; used as the reachability
	// probe during switch.
	Ping(ctx context.Context) error
	Close() error
}
