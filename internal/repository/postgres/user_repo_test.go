package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/authd/internal/errs"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

const insertUserRE = `INSERT INTO users \(username, password_hash\) VALUES \(\$1, \$2\) RETURNING uid`

func TestUserRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(insertUserRE).
		WithArgs("alice", "$argon2id$hash").
		WillReturnRows(pgxmock.NewRows([]string{"uid"}).AddRow(int64(100000)))

	uid, err := r.Create(ctx, "alice", "$argon2id$hash")
	require.NoError(t, err)
	require.Equal(t, int64(100000), uid)
}

func TestUserRepo_Create_DuplicateUsername(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectQuery(insertUserRE).
		WithArgs("alice", "h").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := r.Create(context.Background(), "alice", "h")
	require.ErrorIs(t, err, errs.ErrDuplicateUsername)
}

func TestUserRepo_GetByUsername_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectQuery(`SELECT uid, username, password_hash FROM users WHERE username=\$1`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"uid", "username", "password_hash"}))

	_, err := r.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_List_PopulatesTokenIDs(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectQuery(`SELECT uid, username, password_hash FROM users ORDER BY uid`).
		WillReturnRows(pgxmock.NewRows([]string{"uid", "username", "password_hash"}).
			AddRow(int64(100000), "alice", "h1").
			AddRow(int64(100001), "bob", "h2"))
	mock.ExpectQuery(`SELECT uid, jti FROM jwt_tokens ORDER BY issued_at, jti`).
		WillReturnRows(pgxmock.NewRows([]string{"uid", "jti"}).
			AddRow(int64(100000), "jti-1").
			AddRow(int64(100000), "jti-2"))

	users, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, []string{"jti-1", "jti-2"}, users[0].TokenIDs)
	require.Empty(t, users[1].TokenIDs)
}

func TestUserRepo_Delete_CascadesInOneTx(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM jwt_tokens WHERE uid=\$1`).
		WithArgs(int64(100000)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM users WHERE uid=\$1`).
		WithArgs(int64(100000)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, r.Delete(context.Background(), 100000))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Delete_NotFoundRollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM jwt_tokens WHERE uid=\$1`).
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM users WHERE uid=\$1`).
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	require.ErrorIs(t, r.Delete(context.Background(), 42), errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
