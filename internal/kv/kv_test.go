package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "clarityHistory")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "clarityHistory", []byte(`[1]`)))
	v, ok, err := s.Get(ctx, "clarityHistory")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[1]`, string(v))

	require.NoError(t, s.Set(ctx, "clarityHistory", []byte(`[2]`)))
	v, _, err = s.Get(ctx, "clarityHistory")
	require.NoError(t, err)
	require.Equal(t, `[2]`, string(v))

	require.NoError(t, s.Delete(ctx, "clarityHistory"))
	_, ok, err = s.Get(ctx, "clarityHistory")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Delete(ctx, "never-set"))
	require.NoError(t, s.Close())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	m := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, m.Set(context.Background(), "k", buf))
	buf[0] = 'z'
	v, _, _ := m.Get(context.Background(), "k")
	require.Equal(t, "abc", string(v))
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "store"), false)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStoreStrictPerms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	s, err := NewFileStore(dir, true)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "claritySettings", []byte(`{}`)))

	info, err := os.Stat(filepath.Join(dir, "claritySettings.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	dinfo, err := os.Stat(dir)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o700), dinfo.Mode().Perm())
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), false)
	require.NoError(t, err)
	require.Error(t, s.Set(context.Background(), "../escape", []byte("x")))
	_, _, err = s.Get(context.Background(), "a/b")
	require.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "clarity.db"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestSQLiteStorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "clarity.db")
	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "claritySettings", []byte(`{"apiKey":"k"}`)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(ctx, "claritySettings")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"apiKey":"k"}`, string(v))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("CLARITY_TEST_REDIS")
	if addr == "" {
		t.Skip("CLARITY_TEST_REDIS not set")
	}
	s, err := NewRedisStore(context.Background(), addr, "", 0, "clarity-test:", 0)
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Dir: t.TempDir()})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, Options{Backend: "etcd"})
	require.Error(t, err)

	require.True(t, ValidBackend("SQLite"))
	require.False(t, ValidBackend("etcd"))
}
