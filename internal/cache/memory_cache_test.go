package cache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/cache"
)

func TestMemorySnapshotCache_SetIfNewer(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemorySnapshotCache("wb")
	key := c.BuildKeyByMeeting("123-456-7890")
	assert.Equal(t, "wb:latest:123-456-7890", key)

	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, c.SetIfNewer(ctx, key, &cache.SnapshotCacheResult{ID: "02", Data: json.RawMessage(`2`)}, time.Minute))
	require.NoError(t, c.SetIfNewer(ctx, key, &cache.SnapshotCacheResult{ID: "01", Data: json.RawMessage(`1`)}, time.Minute))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "02", got.ID)

	require.NoError(t, c.SetIfNewer(ctx, key, &cache.SnapshotCacheResult{ID: "03", Data: json.RawMessage(`3`)}, time.Minute))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(got.Data))

	require.NoError(t, c.Delete(ctx, key))
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestMemorySnapshotCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemorySnapshotCache("wb")
	key := c.BuildKeyByMeeting("m")

	require.NoError(t, c.SetIfNewer(ctx, key, &cache.SnapshotCacheResult{ID: "05"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	// An expired entry does not block an older id.
	require.NoError(t, c.SetIfNewer(ctx, key, &cache.SnapshotCacheResult{ID: "01"}, 0))
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "01", got.ID)
}
