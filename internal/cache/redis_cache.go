package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// setIfNewerScript writes id and data unless the stored id is not older.
// ULIDs compare lexicographically in creation order.
var setIfNewerScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'id')
if cur and cur >= ARGV[1] then
	return 0
end
redis.call('HSET', KEYS[1], 'id', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

type RedisSnapshotCache struct {
	client *redis.Client
	prefix string
}

// NewRedisSnapshotCache creates a cache on a shared client. Close does not
// close the client.
func NewRedisSnapshotCache(client *redis.Client, prefix string) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisSnapshotCache) BuildKeyByMeeting(meetingID string) string {
	return fmt.Sprintf("%s:latest:%s", c.prefix, meetingID)
}

func (c *RedisSnapshotCache) Get(ctx context.Context, key string) (*SnapshotCacheResult, error) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	id, ok := fields["id"]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &SnapshotCacheResult{ID: id, Data: []byte(fields["data"])}, nil
}

func (c *RedisSnapshotCache) SetIfNewer(ctx context.Context, key string, result *SnapshotCacheResult, ttl time.Duration) error {
	err := setIfNewerScript.Run(ctx, c.client, []string{key}, result.ID, string(result.Data), ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisSnapshotCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

func (c *RedisSnapshotCache) Close() error {
	return nil
}
