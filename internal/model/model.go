// Package model defines domain entities used by services, repositories and the switchboard.
package model

import (
	"fmt"
	"net/url"
	"time"
)

// ConnKind enumerates supported database backend kinds.
type ConnKind string

const (
	KindSQLite     ConnKind = "sqlite"
	KindPostgreSQL ConnKind = "postgresql"
	KindMySQL      ConnKind = "mysql"
)

// Valid reports whether the kind is one of the supported backends.
func (k ConnKind) Valid() bool {
	switch k {
	case KindSQLite, KindPostgreSQL, KindMySQL:
		return true
	}
	return false
}

// ConnectionDescriptor is the stored configuration for one database backend.
// Parameters are kind-specific: Path for sqlite, Host/Port/Database/Username
// (+ optional Password) for the networked kinds. Descriptors are immutable
// once added; only the switchboard's active pointer moves.
type ConnectionDescriptor struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Kind     ConnKind `json:"type"`
	Path     string   `json:"path,omitempty"`
	Host     string   `json:"host,omitempty"`
	Port     int      `json:"port,omitempty"`
	Database string   `json:"database,omitempty"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"-"`

	IsDefault   bool `json:"is_default"`
	IsRemovable bool `json:"is_removable"`
}

// DSN builds the driver connection string for the descriptor's kind.
func (d ConnectionDescriptor) DSN() string {
	switch d.Kind {
	case KindSQLite:
		// Pragmas match what we need for concurrent serving processes.
		return d.Path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	case KindPostgreSQL:
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			url.QueryEscape(d.Username), url.QueryEscape(d.Password), d.Host, d.Port, d.Database)
	case KindMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	}
	return ""
}

// Redacted returns a copy safe for logs and API payloads.
func (d ConnectionDescriptor) Redacted() ConnectionDescriptor {
	d.Password = ""
	return d
}

// User is an account record. PasswordHash is opaque to everything except the
// hashing collaborator; the plaintext password is never retained. TokenIDs is
// the reverse index of live sessions owned by the user.
type User struct {
	UID          int64    `json:"uid"`
	Username     string   `json:"username"`
	PasswordHash string   `json:"password_hash"`
	TokenIDs     []string `json:"jwt_token_ids"`
}

// Token is one issued session record, keyed by jti. The signed JWT itself is
// built by the signing collaborator; the index stores session metadata only.
type Token struct {
	JTI       string         `json:"jti"`
	UID       int64          `json:"uid"`
	IssuedAt  time.Time      `json:"issued_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	Claims    map[string]any `json:"claims,omitempty"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
