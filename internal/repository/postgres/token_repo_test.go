package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/model"
)

const insertTokenRE = `INSERT INTO jwt_tokens \(jti, uid, issued_at, expires_at, claims\) VALUES \(\$1, \$2, \$3, \$4, \$5\)`

func TestTokenRepo_Insert_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)

	issued := time.Unix(1700000000, 0).UTC()
	tok := &model.Token{
		JTI:       "jti-1",
		UID:       100000,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(24 * time.Hour),
		Claims:    map[string]any{"role": "admin"},
	}
	mock.ExpectExec(insertTokenRE).
		WithArgs("jti-1", int64(100000), issued.Unix(), issued.Add(24*time.Hour).Unix(), `{"role":"admin"}`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.Insert(context.Background(), tok))
}

func TestTokenRepo_Insert_UnknownUID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)

	tok := &model.Token{JTI: "jti-x", UID: 1, IssuedAt: time.Unix(0, 0), ExpiresAt: time.Unix(1, 0)}
	mock.ExpectExec(insertTokenRE).
		WithArgs("jti-x", int64(1), int64(0), int64(1), "{}").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	require.ErrorIs(t, r.Insert(context.Background(), tok), errs.ErrNotFound)
}

func TestTokenRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)

	mock.ExpectQuery(`SELECT jti, uid, issued_at, expires_at, claims FROM jwt_tokens WHERE jti=\$1`).
		WithArgs("jti-1").
		WillReturnRows(pgxmock.NewRows([]string{"jti", "uid", "issued_at", "expires_at", "claims"}).
			AddRow("jti-1", int64(100000), int64(1700000000), int64(1700086400), `{"role":"admin"}`))

	tok, err := r.Get(context.Background(), "jti-1")
	require.NoError(t, err)
	require.Equal(t, int64(100000), tok.UID)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), tok.IssuedAt)
	require.Equal(t, "admin", tok.Claims["role"])

	mock.ExpectQuery(`SELECT jti, uid, issued_at, expires_at, claims FROM jwt_tokens WHERE jti=\$1`).
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"jti", "uid", "issued_at", "expires_at", "claims"}))
	_, err = r.Get(context.Background(), "nope")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTokenRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)

	mock.ExpectExec(`DELETE FROM jwt_tokens WHERE jti=\$1`).
		WithArgs("jti-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(context.Background(), "jti-1"))

	mock.ExpectExec(`DELETE FROM jwt_tokens WHERE jti=\$1`).
		WithArgs("jti-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(context.Background(), "jti-1"), errs.ErrNotFound)
}

func TestTokenRepo_DeleteByUser_NoTokensIsNoop(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)

	mock.ExpectExec(`DELETE FROM jwt_tokens WHERE uid=\$1`).
		WithArgs(int64(100000)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, r.DeleteByUser(context.Background(), 100000))
}
