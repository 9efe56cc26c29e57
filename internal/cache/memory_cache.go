package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryItem struct {
	result    SnapshotCacheResult
	expiresAt time.Time
}

// MemorySnapshotCache is the single-instance SnapshotCache.
type MemorySnapshotCache struct {
	items  map[string]memoryItem
	prefix string
	mu     sync.Mutex
	now    func() time.Time
}

func NewMemorySnapshotCache(prefix string) *MemorySnapshotCache {
	return &MemorySnapshotCache{
		items:  make(map[string]memoryItem),
		prefix: prefix,
		now:    time.Now,
	}
}

func (c *MemorySnapshotCache) BuildKeyByMeeting(meetingID string) string {
	return fmt.Sprintf("%s:latest:%s", c.prefix, meetingID)
}

func (c *MemorySnapshotCache) Get(ctx context.Context, key string) (*SnapshotCacheResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && c.now().After(item.expiresAt) {
		delete(c.items, key)
		return nil, ErrCacheMiss
	}
	result := item.result
	return &result, nil
}

func (c *MemorySnapshotCache) SetIfNewer(ctx context.Context, key string, result *SnapshotCacheResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if item, ok := c.items[key]; ok {
		live := item.expiresAt.IsZero() || !now.After(item.expiresAt)
		if live && item.result.ID >= result.ID {
			return nil
		}
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	c.items[key] = memoryItem{result: *result, expiresAt: expiresAt}
	return nil
}

func (c *MemorySnapshotCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *MemorySnapshotCache) Close() error {
	return nil
}
