package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*PresenceStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPresenceStore(client, time.Minute), mr
}

func TestPresenceStore_CountsSessions(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	n, err := store.Incr(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = store.Incr(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, time.Minute, mr.TTL("presence:alice"))

	n, err = store.Decr(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = store.Decr(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.False(t, mr.Exists("presence:alice"), "key is removed at zero")

	count, err := store.Count(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPresenceStore_DecrNeverGoesNegative(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	n, err := store.Decr(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), n)
	assert.False(t, mr.Exists("presence:bob"))
}

func TestPresenceStore_ExpiresAbandonedCount(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	_, err := store.Incr(ctx, "carol")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	count, err := store.Count(ctx, "carol")
	require.NoError(t, err)
	assert.Zero(t, count)
}
