package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, ttl time.Duration) (*RedisListCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisListCache(client, ttl, logging.Discard()), mr
}

func TestRedisListCache_SetGet(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, "u1")
	assert.False(t, ok)

	files := []*models.File{{ID: "f1", OwnerID: "u1", Name: "a.pdf", Size: 3}}
	c.Set(ctx, "u1", 0, files)

	assert.True(t, mr.Exists("user_files:u1"))
	assert.Equal(t, time.Minute, mr.TTL("user_files:u1"))

	got, ok := c.Get(ctx, "u1")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "a.pdf", got[0].Name)
}

func TestRedisListCache_EmptyListIsAHit(t *testing.T) {
	c, _ := newCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "u1", 0, []*models.File{})
	got, ok := c.Get(ctx, "u1")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestRedisListCache_Expires(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "u1", 0, []*models.File{{ID: "f1"}})
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "u1")
	assert.False(t, ok)
}

func TestRedisListCache_Invalidate(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "u1", 0, []*models.File{{ID: "f1"}})
	c.Set(ctx, "u2", 0, []*models.File{{ID: "f1"}})
	c.Set(ctx, "u3", 0, []*models.File{{ID: "f9"}})

	c.Invalidate(ctx, "u1", "u2")
	c.Invalidate(ctx)

	assert.False(t, mr.Exists("user_files:u1"))
	assert.False(t, mr.Exists("user_files:u2"))
	assert.True(t, mr.Exists("user_files:u3"))
}

func TestRedisListCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	require.NoError(t, mr.Set("user_files:u1", "{not json"))

	_, ok := c.Get(context.Background(), "u1")
	assert.False(t, ok)
}

func TestRedisListCache_ServerDownIsMiss(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	mr.Close()
	ctx := context.Background()

	c.Set(ctx, "u1", 0, []*models.File{{ID: "f1"}})
	_, ok := c.Get(ctx, "u1")
	assert.False(t, ok)
	c.Invalidate(ctx, "u1")
	_, ok = c.Generation(ctx, "u1")
	assert.False(t, ok)
}

func TestNoop(t *testing.T) {
	var c FileListCache = Noop{}
	ctx := context.Background()
	c.Set(ctx, "u1", 0, []*models.File{{ID: "f1"}})
	_, ok := c.Get(ctx, "u1")
	assert.False(t, ok)
	c.Invalidate(ctx, "u1")
}

func TestRedisListCache_SetSkippedAfterInvalidate(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()

	gen, ok := c.Generation(ctx, "u1")
	require.True(t, ok)
	assert.Zero(t, gen)

	// A grant lands while the fill is still reading the old list.
	c.Invalidate(ctx, "u1")
	c.Set(ctx, "u1", gen, []*models.File{})
	assert.False(t, mr.Exists("user_files:u1"))

	gen, ok = c.Generation(ctx, "u1")
	require.True(t, ok)
	assert.EqualValues(t, 1, gen)
	assert.Equal(t, genTTL, mr.TTL("user_files_gen:u1"))

	c.Set(ctx, "u1", gen, []*models.File{{ID: "f1"}})
	got, ok := c.Get(ctx, "u1")
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestRedisListCache_ZeroTTLNeverExpires(t *testing.T) {
	c, mr := newCache(t, 0)
	ctx := context.Background()

	c.Set(ctx, "u1", 0, []*models.File{{ID: "f1"}})
	assert.True(t, mr.Exists("user_files:u1"))
	assert.Zero(t, mr.TTL("user_files:u1"))
}
