package sqldb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/migrate"
	"github.com/and161185/authd/internal/model"
)

// newSQLite opens a migrated in-memory sqlite backend. The suite runs the
// same SQL that mysql gets, so it covers the shared dialect surface too.
func newSQLite(t *testing.T) *Backend {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.Up(context.Background(), sqlDB, model.KindSQLite))
	return NewBackend(&DB{SQL: sqlDB, Kind: model.KindSQLite})
}

func TestUserRepo_CreateGetVerifyShape(t *testing.T) {
	b := newSQLite(t)
	ctx := context.Background()

	uid, err := b.Users().Create(ctx, "alice", "hash-a")
	require.NoError(t, err)
	require.Equal(t, int64(100000), uid)

	uid2, err := b.Users().Create(ctx, "bob", "hash-b")
	require.NoError(t, err)
	require.Equal(t, int64(100001), uid2, "uid allocation is monotonic")

	u, err := b.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uid, u.UID)
	require.Equal(t, "hash-a", u.PasswordHash)

	_, err = b.Users().GetByUsername(ctx, "Alice")
	require.ErrorIs(t, err, errs.ErrNotFound, "username matching is case-sensitive")
}

func TestUserRepo_DuplicateUsername(t *testing.T) {
	b := newSQLite(t)
	ctx := context.Background()

	_, err := b.Users().Create(ctx, "alice", "h1")
	require.NoError(t, err)

	_, err = b.Users().Create(ctx, "alice", "h2")
	require.ErrorIs(t, err, errs.ErrDuplicateUsername)

	users, err := b.Users().List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1, "failed create must not grow the table")
}

func TestUserRepo_UIDNeverReused(t *testing.T) {
	b := newSQLite(t)
	ctx := context.Background()

	uid, err := b.Users().Create(ctx, "alice", "h")
	require.NoError(t, err)
	require.Equal(t, int64(100000), uid)
	require.NoError(t, b.Users().Delete(ctx, uid))

	// Deleting the only user must not wind the counter back; a token
	// issued for the old uid must never become valid for a new user.
	uid2, err := b.Users().Create(ctx, "bob", "h")
	require.NoError(t, err)
	require.Greater(t, uid2, uid)
	require.Equal(t, int64(100001), uid2)
}

func TestUserRepo_FailedCreateStillAdvancesSafely(t *testing.T) {
	b := newSQLite(t)
	ctx := context.Background()

	uid, err := b.Users().Create(ctx, "alice", "h")
	require.NoError(t, err)

	_, err = b.Users().Create(ctx, "alice", "h2")
	require.ErrorIs(t, err, errs.ErrDuplicateUsername)

	// The rolled-back allocation was never handed out, so the next user
	// may take it; what matters is that no assigned uid repeats.
	uid2, err := b.Users().Create(ctx, "bob", "h")
	require.NoError(t, err)
	require.Greater(t, uid2, uid)
}

func TestTokenRepo_InsertLookupRevoke(t *testing.T) {
	b := newSQLite(t)
	ctx := context.Background()

	uid, err := b.Users().Create(ctx, "alice", "h")
	require.NoError(t, err)

	issued := time.Now().UTC().Truncate(time.Second)
	tok := &model.Token{
		JTI:       "jti-1",
		UID:       uid,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(24 * time.Hour),
		Claims:    map[string]any{"role": "admin"},
	}
	require.NoError(t, b.Tokens().Insert(ctx, tok))

	got, err := b.Tokens().Get(ctx, "jti-1")
	require.NoError(t, err)
	require.Equal(t, uid, got.UID)
	require.Equal(t, issued, got.IssuedAt)
	require.Equal(t, "admin", got.Claims["role"])

	require.NoError(t, b.Tokens().Delete(ctx, "jti-1"))
	_, err = b.Tokens().Get(ctx, "jti-1")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, b.Tokens().Delete(ctx, "jti-1"), errs.ErrNotFound)
}

func TestTokenRepo_InsertUnknownUID(t *testing.T) {
	b := newSQLite(t)
	ctx := context.Background()

	tok := &model.Token{JTI: "jti-x", UID: 424242, IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.ErrorIs(t, b.Tokens().Insert(ctx, tok), errs.ErrNotFound)
}

func TestUserRepo_DeleteCascadesTokens(t *testing.T) {
	b := newSQLite(t)
	ctx := context.Background()

	uid, err := b.Users().Create(ctx, "alice", "h")
	require.NoError(t, err)
	now := time.Now().UTC()
	for _, jti := range []string{"t1", "t2", "t3"} {
		require.NoError(t, b.Tokens().Insert(ctx, &model.Token{
			JTI: jti, UID: uid, IssuedAt: now, ExpiresAt: now.Add(time.Hour),
		}))
	}

	require.NoError(t, b.Users().Delete(ctx, uid))

	for _, jti := range []string{"t1", "t2", "t3"} {
		_, err := b.Tokens().Get(ctx, jti)
		require.ErrorIs(t, err, errs.ErrNotFound)
	}
	require.ErrorIs(t, b.Users().Delete(ctx, uid), errs.ErrNotFound)
}

func TestUserRepo_ListPopulatesTokenIDsInIssueOrder(t *testing.T) {
	b := newSQLite(t)
	ctx := context.Background()

	uid, err := b.Users().Create(ctx, "alice", "h")
	require.NoError(t, err)
	base := time.Unix(1700000000, 0).UTC()
	for i, jti := range []string{"a", "b", "c"} {
		require.NoError(t, b.Tokens().Insert(ctx, &model.Token{
			JTI: jti, UID: uid, IssuedAt: base.Add(time.Duration(i) * time.Second),
			ExpiresAt: base.Add(time.Hour),
		}))
	}

	users, err := b.Users().List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, []string{"a", "b", "c"}, users[0].TokenIDs)
}
