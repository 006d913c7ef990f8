package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/testutil"
)

func TestRedisMarkStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	store := NewRedisMarkStore(client)
	ctx := context.Background()

	t.Run("first mark wins", func(t *testing.T) {
		set, err := store.MarkNX(ctx, "test:mark:a", time.Minute)
		require.NoError(t, err)
		assert.True(t, set)

		set, err = store.MarkNX(ctx, "test:mark:a", time.Minute)
		require.NoError(t, err)
		assert.False(t, set)

		ttl := client.TTL(ctx, "test:mark:a").Val()
		assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl = %s", ttl)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		set, err := store.MarkNX(ctx, "test:mark:forever", 0)
		require.NoError(t, err)
		assert.True(t, set)
		// -1 means the key has no expiry.
		assert.Equal(t, time.Duration(-1), client.TTL(ctx, "test:mark:forever").Val())
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := store.Exists(ctx, "test:mark:missing")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = store.MarkNX(ctx, "test:mark:present", time.Minute)
		require.NoError(t, err)
		ok, err = store.Exists(ctx, "test:mark:present")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("marker service marks once across instances", func(t *testing.T) {
		opts := core.MarkerServiceOptions{Store: store, Prefix: "test:marker:"}
		first := core.NewMarkerService(opts)
		second := core.NewMarkerService(opts)

		marked, err := first.MarkOnce(ctx, "redo_cap:root-1")
		require.NoError(t, err)
		assert.True(t, marked)

		// A fresh process sees the mark through redis.
		marked, err = second.MarkOnce(ctx, "redo_cap:root-1")
		require.NoError(t, err)
		assert.False(t, marked)

		seen, err := second.Marked(ctx, "redo_cap:root-1")
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestRedisMarkStoreRejectsEmptyKey(t *testing.T) {
	// Validation happens before any command is sent, so no server is needed.
	store := NewRedisMarkStore(nil)
	ctx := context.Background()

	_, err := store.MarkNX(ctx, "", time.Minute)
	assert.ErrorIs(t, err, errEmptyKey)
	_, err = store.Exists(ctx, "")
	assert.ErrorIs(t, err, errEmptyKey)
}
