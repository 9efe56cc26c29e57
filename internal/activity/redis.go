package activity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps last_active:<meeting>:<user> keys holding a unix
// timestamp, and an alerted marker beside each.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func lastActiveKey(meetingID, userID string) string {
	return fmt.Sprintf("last_active:%s:%s", meetingID, userID)
}

func alertedKey(meetingID, userID string) string {
	return fmt.Sprintf("inactivity_alerted:%s:%s", meetingID, userID)
}

func (s *RedisStore) Touch(ctx context.Context, meetingID, userID string, at time.Time) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, lastActiveKey(meetingID, userID), at.Unix(), s.ttl)
	pipe.Del(ctx, alertedKey(meetingID, userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

func (s *RedisStore) LastSeen(ctx context.Context, meetingID, userID string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, lastActiveKey(meetingID, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read activity: %w", err)
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid activity value %q: %w", raw, err)
	}
	return time.Unix(sec, 0).UTC(), true, nil
}

func (s *RedisStore) MarkAlerted(ctx context.Context, meetingID, userID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, alertedKey(meetingID, userID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark alerted: %w", err)
	}
	return ok, nil
}
