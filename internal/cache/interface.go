package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// SnapshotCacheResult is the cached latest whiteboard snapshot of a meeting.
type SnapshotCacheResult struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// SnapshotCache holds the latest snapshot per meeting. SetIfNewer only
// replaces an entry whose id sorts before result.ID, so concurrent writers
// and backfills never move the cache backwards.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (*SnapshotCacheResult, error)
	SetIfNewer(ctx context.Context, key string, result *SnapshotCacheResult, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKeyByMeeting(meetingID string) string
	Close() error
}
