package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "user_files:"
	genPrefix = "user_files_gen:"

	// genTTL keeps idle counters from piling up. It is far longer than any
	// fill, so a counter never resets while a fill that read it is running.
	genTTL = 24 * time.Hour
)

// setIfCurrent writes the list only while the generation counter still holds
// the value the fill started with. A missing counter counts as 0.
var setIfCurrent = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or '0'
if cur ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

// RedisListCache stores each user's list as one JSON value with a TTL.
type RedisListCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logging.Logger
}

func NewRedisListCache(client redis.Cmdable, ttl time.Duration, logger logging.Logger) *RedisListCache {
	return &RedisListCache{client: client, ttl: ttl, logger: logger}
}

func key(userID string) string {
	return keyPrefix + userID
}

func genKey(userID string) string {
	return genPrefix + userID
}

func (c *RedisListCache) Get(ctx context.Context, userID string) ([]*models.File, bool) {
	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn(ctx, "file list cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}

	var files []*models.File
	if err := json.Unmarshal(raw, &files); err != nil {
		c.logger.Warn(ctx, "file list cache entry corrupt", "user_id", userID, "error", err)
		return nil, false
	}
	return files, true
}

func (c *RedisListCache) Generation(ctx context.Context, userID string) (int64, bool) {
	gen, err := c.client.Get(ctx, genKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, true
		}
		c.logger.Warn(ctx, "file list cache generation read failed", "user_id", userID, "error", err)
		return 0, false
	}
	return gen, true
}

func (c *RedisListCache) Set(ctx context.Context, userID string, gen int64, files []*models.File) {
	raw, err := json.Marshal(files)
	if err != nil {
		c.logger.Warn(ctx, "file list cache encode failed", "user_id", userID, "error", err)
		return
	}
	keys := []string{genKey(userID), key(userID)}
	stored, err := setIfCurrent.Run(ctx, c.client, keys, strconv.FormatInt(gen, 10), raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.logger.Warn(ctx, "file list cache write failed", "user_id", userID, "error", err)
		return
	}
	if stored == 0 {
		c.logger.Debug(ctx, "file list cache fill skipped, invalidated meanwhile", "user_id", userID)
	}
}

// Invalidate bumps each user's generation and drops the cached list in one
// MULTI block.
func (c *RedisListCache) Invalidate(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, genKey(id))
			pipe.Expire(ctx, genKey(id), genTTL)
			pipe.Del(ctx, key(id))
		}
		return nil
	})
	if err != nil {
		c.logger.Warn(ctx, "file list cache invalidation failed", "users", userIDs, "error", err)
	}
}
