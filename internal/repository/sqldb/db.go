// Package sqldb implements the repository interfaces over database/sql for
// the sqlite and mysql backend kinds. Both dialects take ? placeholders, so
// the SQL is shared; only driver registration and error classification differ.
package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/and161185/authd/internal/model"
)

// DB wraps a database/sql handle together with its backend kind.
type DB struct {
	SQL  *sql.DB
	Kind model.ConnKind
}

// driverFor maps a backend kind to its registered driver name.
func driverFor(kind model.ConnKind) (string, error) {
	switch kind {
	case model.KindSQLite:
		return "sqlite", nil
	case model.KindMySQL:
		return "mysql", nil
	}
	return "", fmt.Errorf("sqldb: unsupported backend kind %q", kind)
}

// isUniqueViolation reports whether err is a unique violation involving the
// named column (sqlite reports table.column; mysql reports the key name).
// An empty column matches any unique violation.
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	var my *mysql.MySQLError
	if errors.As(err, &my) {
		return my.Number == 1062 && (column == "" || strings.Contains(my.Message, column))
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		(column == "" || strings.Contains(err.Error(), column))
}

// isFKViolation reports whether the error is a foreign key violation.
func isFKViolation(err error) bool {
	if err == nil {
		return false
	}
	var my *mysql.MySQLError
	if errors.As(err, &my) {
		return my.Number == 1452
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
