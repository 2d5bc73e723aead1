package configstore

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_LifeCycle(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "vault.json")
	s := NewFileStore(p)
	assert.Equal(t, p, s.Path())

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.Persist(ctx, []byte("v1")))
	require.NoError(t, s.Persist(ctx, []byte("v2")))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(p)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}

	require.NoError(t, s.Delete(ctx))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.Delete(ctx), "deleting a missing envelope is not an error")
}

func TestFileStore_PersistFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p := filepath.Join(dir, "vault.json")
	s := NewFileStore(p)
	require.NoError(t, s.Persist(ctx, []byte("good")))

	bad := NewFileStore(filepath.Join(dir, "missing-dir", "vault.json"))
	err := bad.Persist(ctx, []byte("x"))
	require.ErrorIs(t, err, common.ErrConfigIO)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("good"), got)
}

func TestFileStore_ReadErrorIsConfigIO(t *testing.T) {
	dir := t.TempDir()
	// a directory cannot be read as a file
	_, err := NewFileStore(dir).Load(context.Background())
	assert.ErrorIs(t, err, common.ErrConfigIO)
}

func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewFileStore(filepath.Join(t.TempDir(), "v")).Persist(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)

	buf := []byte("abc")
	require.NoError(t, s.Persist(ctx, buf))
	buf[0] = 'x'

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got, "store must copy its input")
	assert.Equal(t, 1, s.Persists())

	require.NoError(t, s.Delete(ctx))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, common.ErrNotFound)
}
