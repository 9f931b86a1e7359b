package model

import (
	"strings"
	"testing"
)

func TestConnKindValid(t *testing.T) {
	t.Parallel()
	for _, k := range []ConnKind{KindSQLite, KindPostgreSQL, KindMySQL} {
		if !k.Valid() {
			t.Errorf("%s reported invalid", k)
		}
	}
	if ConnKind("oracle").Valid() {
		t.Error("unknown kind reported valid")
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()

	sqlite := ConnectionDescriptor{Kind: KindSQLite, Path: "data/auth.db"}
	if got := sqlite.DSN(); !strings.HasPrefix(got, "data/auth.db?") || !strings.Contains(got, "journal_mode(WAL)") {
		t.Fatalf("sqlite dsn: %s", got)
	}

	pg := ConnectionDescriptor{
		Kind: KindPostgreSQL, Host: "db1", Port: 5432,
		Database: "auth", Username: "svc", Password: "p@ss/word",
	}
	got := pg.DSN()
	if strings.Contains(got, "p@ss/word") {
		t.Fatalf("password not escaped: %s", got)
	}
	if !strings.HasPrefix(got, "postgres://svc:") || !strings.HasSuffix(got, "@db1:5432/auth?sslmode=disable") {
		t.Fatalf("postgres dsn: %s", got)
	}

	my := ConnectionDescriptor{
		Kind: KindMySQL, Host: "db2", Port: 3306,
		Database: "auth", Username: "svc", Password: "pw",
	}
	if got := my.DSN(); got != "svc:pw@tcp(db2:3306)/auth?parseTime=true" {
		t.Fatalf("mysql dsn: %s", got)
	}
}

func TestRedacted(t *testing.T) {
	t.Parallel()
	d := ConnectionDescriptor{Kind: KindMySQL, Username: "svc", Password: "pw"}
	r := d.Redacted()
	if r.Password != "" {
		t.Fatal("password survived redaction")
	}
	if d.Password != "pw" {
		t.Fatal("redaction mutated the original")
	}
}
