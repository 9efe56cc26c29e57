package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// refreshScript rewrites each given field only while it still exists, then
// extends the room key. ARGV[1] is the ttl in milliseconds followed by
// field/value pairs.
var refreshScript = redis.NewScript(`
local kept = 0
for i = 2, #ARGV, 2 do
	if redis.call('HEXISTS', KEYS[1], ARGV[i]) == 1 then
		redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
		kept = kept + 1
	end
end
if kept > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return kept
`)

// RedisConfig configures RedisRegistry.
type RedisConfig struct {
	Prefix            string
	InstanceID        string
	KeyTTL            time.Duration
	HeartbeatInterval time.Duration
}

// redisRecord is what is stored per session in a room hash. Seen is
// refreshed by the owning instance; records older than KeyTTL belong to a
// dead instance and are pruned on read.
type redisRecord struct {
	Entry    Entry  `json:"entry"`
	Instance string `json:"instance"`
	Seen     int64  `json:"seen"`
}

// RedisRegistry shares room membership between instances: one hash per
// room, one field per session.
type RedisRegistry struct {
	client  *redis.Client
	cfg     RedisConfig
	managed map[string]map[string]Entry // room hash key -> session id -> entry
	mu      sync.RWMutex
	cancel  context.CancelFunc
	now     func() time.Time
}

// NewRedisRegistry creates a RedisRegistry on an existing client. The
// caller owns the client.
func NewRedisRegistry(client *redis.Client, cfg RedisConfig) *RedisRegistry {
	if cfg.Prefix == "" {
		cfg.Prefix = "pentutor:registry"
	}
	if cfg.KeyTTL <= 0 {
		cfg.KeyTTL = 90 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = cfg.KeyTTL / 3
	}
	return &RedisRegistry{
		client:  client,
		cfg:     cfg,
		managed: make(map[string]map[string]Entry),
		now:     time.Now,
	}
}

func (r *RedisRegistry) keyFor(room domain.RoomKey) string {
	return fmt.Sprintf("%s:room:%s", r.cfg.Prefix, room.String())
}

func (r *RedisRegistry) record(entry Entry) ([]byte, error) {
	return json.Marshal(redisRecord{Entry: entry, Instance: r.cfg.InstanceID, Seen: r.now().Unix()})
}

func (r *RedisRegistry) Register(ctx context.Context, room domain.RoomKey, entry Entry) ([]Entry, error) {
	key := r.keyFor(room)
	data, err := r.record(entry)
	if err != nil {
		return nil, err
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, entry.Member.SessionID, data)
	pipe.Expire(ctx, key, r.cfg.KeyTTL)
	all := pipe.HGetAll(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	r.mu.Lock()
	if _, ok := r.managed[key]; !ok {
		r.managed[key] = make(map[string]Entry)
	}
	r.managed[key][entry.Member.SessionID] = entry
	r.mu.Unlock()

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldRoom, room.String()).Str(log.FieldSessionID, entry.Member.SessionID).Msg("registered session")
	return r.decode(ctx, key, all.Val()), nil
}

func (r *RedisRegistry) Deregister(ctx context.Context, room domain.RoomKey, sessionID string) ([]Entry, error) {
	key := r.keyFor(room)

	pipe := r.client.TxPipeline()
	pipe.HDel(ctx, key, sessionID)
	all := pipe.HGetAll(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to deregister session: %w", err)
	}

	r.mu.Lock()
	if entries, ok := r.managed[key]; ok {
		delete(entries, sessionID)
		if len(entries) == 0 {
			delete(r.managed, key)
		}
	}
	r.mu.Unlock()

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldRoom, room.String()).Str(log.FieldSessionID, sessionID).Msg("deregistered session")
	return r.decode(ctx, key, all.Val()), nil
}

func (r *RedisRegistry) Members(ctx context.Context, room domain.RoomKey) ([]Entry, error) {
	key := r.keyFor(room)
	all, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read room members: %w", err)
	}
	return r.decode(ctx, key, all), nil
}

// decode parses a room hash, pruning malformed and stale records.
func (r *RedisRegistry) decode(ctx context.Context, key string, fields map[string]string) []Entry {
	cutoff := r.now().Add(-r.cfg.KeyTTL).Unix()
	entries := make([]Entry, 0, len(fields))
	var stale []string

	for field, raw := range fields {
		var rec redisRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Seen < cutoff {
			stale = append(stale, field)
			continue
		}
		entries = append(entries, rec.Entry)
	}

	if len(stale) > 0 {
		if err := r.client.HDel(ctx, key, stale...).Err(); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str("key", key).Msg("failed to prune stale sessions")
		}
	}

	sortEntries(entries)
	return entries
}

// StartHeartbeat keeps this instance's sessions alive until ctx is done.
func (r *RedisRegistry) StartHeartbeat(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go r.heartbeatLoop(ctx)
	l := log.L()
	l.Info().Dur("interval", r.cfg.HeartbeatInterval).Dur("ttl", r.cfg.KeyTTL).Msg("registry heartbeat started")
}

func (r *RedisRegistry) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *RedisRegistry) refresh(ctx context.Context) {
	r.refreshRooms(ctx, r.snapshotManaged())
}

func (r *RedisRegistry) snapshotManaged() map[string][]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make(map[string][]Entry, len(r.managed))
	for key, entries := range r.managed {
		for _, e := range entries {
			snapshot[key] = append(snapshot[key], e)
		}
	}
	return snapshot
}

// refreshRooms rewrites the records in snapshot. A session deregistered
// after the snapshot was taken is no longer in its hash and stays gone.
func (r *RedisRegistry) refreshRooms(ctx context.Context, snapshot map[string][]Entry) {
	l := log.L()
	for key, entries := range snapshot {
		args := make([]interface{}, 0, 1+2*len(entries))
		args = append(args, r.cfg.KeyTTL.Milliseconds())
		for _, e := range entries {
			data, err := r.record(e)
			if err != nil {
				continue
			}
			args = append(args, e.Member.SessionID, string(data))
		}
		if err := refreshScript.Run(ctx, r.client, []string{key}, args...).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.Error().Str("key", key).Err(err).Msg("failed to refresh room")
		}
	}
}

// StopHeartbeat stops the refresh loop.
func (r *RedisRegistry) StopHeartbeat() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Close stops the heartbeat. The client is left open.
func (r *RedisRegistry) Close() error {
	r.StopHeartbeat()
	return nil
}
