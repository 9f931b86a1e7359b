// Package migrate applies embedded SQL migrations for a backend kind.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/and161185/authd/internal/model"
	"github.com/and161185/authd/migrations"
)

// Up runs all pending migrations for the backend kind against db. Callers
// serialize invocations (the switchboard runs at most one switch at a time),
// which keeps goose's package-level dialect state safe.
func Up(ctx context.Context, db *sql.DB, kind model.ConnKind) error {
	dialect, dir, err := dialectFor(kind)
	if err != nil {
		return err
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, dir)
}

func dialectFor(kind model.ConnKind) (dialect, dir string, err error) {
	switch kind {
	case model.KindPostgreSQL:
		return "postgres", "postgres", nil
	case model.KindSQLite:
		return "sqlite3", "sqlite", nil
	case model.KindMySQL:
		return "mysql", "mysql", nil
	}
	return "", "", fmt.Errorf("no migrations for backend kind %q", kind)
}
