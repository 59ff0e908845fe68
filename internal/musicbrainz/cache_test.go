package musicbrainz

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	c := NewMemoryCache(time.Hour)
	c.now = func() time.Time { return now }

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, &Recording{ID: "a", Title: "Song"}))

	rec, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Song", rec.Title)

	now = now.Add(2 * time.Hour)
	_, ok, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "stale entry should miss")
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("MIXTAPE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MIXTAPE_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	rdb, err := OpenRedis(ctx, RedisOptions{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewRedisCache(rdb, time.Minute)
	rec := &Recording{ID: "test-" + time.Now().Format(time.RFC3339Nano), Title: "Song", ISRCs: []string{"X"}, Artists: []string{"A"}}
	t.Cleanup(func() { rdb.Del(ctx, redisKeyPrefix+rec.ID) })

	_, ok, err := c.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, rec))

	got, ok, err := c.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}
