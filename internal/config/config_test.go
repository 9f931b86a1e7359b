package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/and161185/authd/internal/errs"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestResolve_DefaultsWin_WhenNothingElseDefines(t *testing.T) {
	t.Parallel()

	r, err := Resolve(DefaultSchema(), Options{LookupEnv: noEnv})
	require.NoError(t, err)

	require.Equal(t, "sqlite", r.String(KeyDatabaseType))
	require.Equal(t, 16202, r.Int(KeyPortManage))
	require.Equal(t, SourceDefault, r.Origin(KeyPortManage))
}

func TestResolve_PriorityOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	devFile := filepath.Join(dir, "dev.yaml")
	require.NoError(t, os.WriteFile(devFile, []byte(
		"DATABASE_HOST: dev-host\nPORT_MANAGE: 17000\nDATABASE_PORT: 5433\n"), 0o600))

	r, err := Resolve(DefaultSchema(), Options{
		Args:      []string{"--database-host=arg-host", "--port-manage", "18000"},
		DevFile:   devFile,
		LookupEnv: envFrom(map[string]string{"DATABASE_HOST": "env-host"}),
	})
	require.NoError(t, err)

	// env beats args beats dev file beats default
	require.Equal(t, "env-host", r.String(KeyDatabaseHost))
	require.Equal(t, SourceEnv, r.Origin(KeyDatabaseHost))

	require.Equal(t, 18000, r.Int(KeyPortManage))
	require.Equal(t, SourceArgs, r.Origin(KeyPortManage))

	require.Equal(t, 5433, r.Int(KeyDatabasePort))
	require.Equal(t, SourceDevFile, r.Origin(KeyDatabasePort))

	require.Equal(t, 16203, r.Int(KeyPortAux))
	require.Equal(t, SourceDefault, r.Origin(KeyPortAux))
}

func TestResolve_UnknownKeysIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	devFile := filepath.Join(dir, "dev.yaml")
	require.NoError(t, os.WriteFile(devFile, []byte(
		"NOT_A_KEY: whatever\nPORT_AUX: 19000\n"), 0o600))

	r, err := Resolve(DefaultSchema(), Options{
		Args:      []string{"--also-not-a-key=1"},
		DevFile:   devFile,
		LookupEnv: noEnv,
	})
	require.NoError(t, err)
	require.Equal(t, 19000, r.Int(KeyPortAux))

	_, known := r.Snapshot()["NOT_A_KEY"]
	require.False(t, known)
}

func TestResolve_TypeCoercionFailure(t *testing.T) {
	t.Parallel()

	_, err := Resolve(DefaultSchema(), Options{
		LookupEnv: envFrom(map[string]string{"DATABASE_PORT": "not-a-port"}),
	})
	require.ErrorIs(t, err, errs.ErrConfigType)
	require.Contains(t, err.Error(), "DATABASE_PORT")
}

func TestResolve_MissingDevFileIsNotAnError(t *testing.T) {
	t.Parallel()

	r, err := Resolve(DefaultSchema(), Options{
		DevFile:   filepath.Join(t.TempDir(), "nope.yaml"),
		LookupEnv: noEnv,
	})
	require.NoError(t, err)
	require.Equal(t, "HS256", r.String(KeyJWTAlgorithm))
}
