package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/tolaton/genqueue/internal/platform/redis"
	"github.com/tolaton/genqueue/internal/store"
)

func newTestStore(t *testing.T) (*redisstore.StatusStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.New(client), mr
}

func TestStatusStoreSetGet(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, store.TaskKey("abc"), []byte(`{"status":"PENDING"}`), time.Hour))

	got, err := s.Get(ctx, store.TaskKey("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"status":"PENDING"}`), got)
}

func TestStatusStoreMissIsNotFound(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), store.TaskKey("never-created"))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// TestStatusStoreExpiry verifies that a record written with a one second
// TTL and read after the TTL elapsed is a plain miss, identical in shape
// to a never-created key.
func TestStatusStoreExpiry(t *testing.T) {
	t.Parallel()

	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "task:expiring", []byte("v"), time.Second))

	// Still readable before the deadline.
	_, err := s.Get(ctx, "task:expiring")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, expiredErr := s.Get(ctx, "task:expiring")
	assert.ErrorIs(t, expiredErr, store.ErrNotFound)

	_, missErr := s.Get(ctx, "task:never-created")
	assert.Equal(t, missErr, expiredErr)
}

func TestStatusStoreSetResetsTTL(t *testing.T) {
	t.Parallel()

	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "task:a", []byte("v1"), 10*time.Second))
	mr.FastForward(8 * time.Second)

	// A rewrite near the end of life must start a fresh TTL.
	require.NoError(t, s.Set(ctx, "task:a", []byte("v2"), 10*time.Second))
	mr.FastForward(8 * time.Second)

	got, err := s.Get(ctx, "task:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

// TestStatusStoreUnavailable verifies that an unreachable server surfaces
// as ErrUnavailable, distinguishable from a miss.
func TestStatusStoreUnavailable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := redisstore.New(client)

	mr.Close()

	err := s.Set(context.Background(), "task:a", []byte("v"), time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)

	_, err = s.Get(context.Background(), "task:a")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.False(t, store.IsNotFound(err))
}
