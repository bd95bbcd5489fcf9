package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-admin-console/internal/ports"
	"github.com/target/mmk-admin-console/internal/testutil"
)

// setupTestRedis creates a Redis client backed by an in-process miniredis.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestBlobStore_SetAndGet(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewBlobStore(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ports.KeySession, []byte(`{"token":"abc"}`)))

	got, err := store.Get(ctx, ports.KeySession)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"abc"}`, string(got))

	assert.True(t, mr.Exists("mmk:console:"+ports.KeySession))
	assert.Equal(t, 0, int(mr.TTL("mmk:console:"+ports.KeySession)), "no ttl on persisted state")
}

func TestBlobStore_GetNonExistent(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewBlobStore(client)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestBlobStore_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewBlobStoreWithPrefix(client, "test:")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ports.KeyDashboardSel, []byte("Finance")))
	assert.True(t, mr.Exists("test:"+ports.KeyDashboardSel))

	require.NoError(t, store.Delete(ctx, ports.KeyDashboardSel))
	assert.False(t, mr.Exists("test:"+ports.KeyDashboardSel))
	require.NoError(t, store.Delete(ctx, ""))
}

func TestBlobStore_SetEmptyKey(t *testing.T) {
	_, client := setupTestRedis(t)
	assert.Error(t, NewBlobStore(client).Set(context.Background(), "", []byte("x")))
}

func TestBlobStore_ServerDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewBlobStore(client)
	mr.Close()

	_, err := store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrNotFound)
}
