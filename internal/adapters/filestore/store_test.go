package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-admin-console/internal/ports"
)

func TestStore_SetGetDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "state"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, ports.KeySession)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	require.NoError(t, store.Set(ctx, ports.KeySession, []byte(`{"token":"a"}`)))
	require.NoError(t, store.Set(ctx, ports.KeySession, []byte(`{"token":"b"}`)))

	got, err := store.Get(ctx, ports.KeySession)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"b"}`, string(got))

	info, err := os.Stat(filepath.Join(dir, "state", ports.KeySession))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Delete(ctx, ports.KeySession))
	require.NoError(t, store.Delete(ctx, ports.KeySession))
	_, err = store.Get(ctx, ports.KeySession)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	entries, err := os.ReadDir(filepath.Join(dir, "state"))
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files left behind")
}

func TestStore_RejectsPathKeys(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", ".."} {
		assert.Error(t, store.Set(context.Background(), key, []byte("x")), key)
	}
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}
