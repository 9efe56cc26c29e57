package registry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
)

func newTestRedisRegistry(t *testing.T) (*RedisRegistry, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	reg := NewRedisRegistry(client, RedisConfig{Prefix: "test", InstanceID: "i1", KeyTTL: 90 * time.Second})
	t.Cleanup(func() { reg.Close() })
	return reg, mr
}

func redisEntry(sessionID, userID string, at time.Time) Entry {
	return Entry{
		Member:      domain.Member{SessionID: sessionID, UserID: userID, Name: userID, ConnectedAt: at},
		IdentityKey: "user:" + userID,
	}
}

func sessionIDs(entries []Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Member.SessionID
	}
	return ids
}

func TestRedisRegistry_RegisterAndDeregister(t *testing.T) {
	// Arrange
	ctx := context.Background()
	reg, mr := newTestRedisRegistry(t)
	room := domain.MeetingRoom("m1")
	base := time.Now()

	// Act
	_, err := reg.Register(ctx, room, redisEntry("s2", "bob", base.Add(time.Second)))
	require.NoError(t, err)
	members, err := reg.Register(ctx, room, redisEntry("s1", "alice", base))
	require.NoError(t, err)

	// Assert
	assert.Equal(t, []string{"s1", "s2"}, sessionIDs(members))
	assert.Equal(t, 90*time.Second, mr.TTL(reg.keyFor(room)))

	remaining, err := reg.Deregister(ctx, room, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sessionIDs(remaining))
	assert.False(t, HasIdentity(remaining, "user:alice"))

	other, err := reg.Members(ctx, domain.WhiteboardRoom("m1"))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRedisRegistry_RefreshExtendsLiveSessions(t *testing.T) {
	ctx := context.Background()
	reg, mr := newTestRedisRegistry(t)
	room := domain.MeetingRoom("m1")
	key := reg.keyFor(room)
	_, err := reg.Register(ctx, room, redisEntry("s1", "alice", time.Now()))
	require.NoError(t, err)

	mr.FastForward(60 * time.Second)
	later := time.Now().Add(60 * time.Second)
	reg.now = func() time.Time { return later }
	reg.refresh(ctx)

	assert.Equal(t, 90*time.Second, mr.TTL(key))
	var rec redisRecord
	require.NoError(t, json.Unmarshal([]byte(mr.HGet(key, "s1")), &rec))
	assert.Equal(t, later.Unix(), rec.Seen)
	assert.Equal(t, "i1", rec.Instance)
}

func TestRedisRegistry_RefreshDoesNotRestoreDeregisteredSession(t *testing.T) {
	// Arrange
	ctx := context.Background()
	reg, _ := newTestRedisRegistry(t)
	room := domain.MeetingRoom("m1")
	_, err := reg.Register(ctx, room, redisEntry("s1", "alice", time.Now()))
	require.NoError(t, err)
	_, err = reg.Register(ctx, room, redisEntry("s2", "bob", time.Now()))
	require.NoError(t, err)

	// Act: the heartbeat snapshot is taken before s1 leaves and written after.
	snapshot := reg.snapshotManaged()
	_, err = reg.Deregister(ctx, room, "s1")
	require.NoError(t, err)
	reg.refreshRooms(ctx, snapshot)

	// Assert
	members, err := reg.Members(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sessionIDs(members))
	assert.False(t, HasIdentity(members, "user:alice"))
}

func TestRedisRegistry_RefreshAfterRoomEmptied(t *testing.T) {
	ctx := context.Background()
	reg, mr := newTestRedisRegistry(t)
	room := domain.MeetingRoom("m1")
	_, err := reg.Register(ctx, room, redisEntry("s1", "alice", time.Now()))
	require.NoError(t, err)

	snapshot := reg.snapshotManaged()
	_, err = reg.Deregister(ctx, room, "s1")
	require.NoError(t, err)
	reg.refreshRooms(ctx, snapshot)

	assert.False(t, mr.Exists(reg.keyFor(room)))
}

func TestRedisRegistry_PrunesStaleAndMalformedRecords(t *testing.T) {
	// Arrange
	ctx := context.Background()
	reg, mr := newTestRedisRegistry(t)
	room := domain.MeetingRoom("m1")
	key := reg.keyFor(room)
	_, err := reg.Register(ctx, room, redisEntry("live", "alice", time.Now()))
	require.NoError(t, err)

	dead, err := json.Marshal(redisRecord{
		Entry:    redisEntry("dead", "bob", time.Now()),
		Instance: "crashed",
		Seen:     time.Now().Add(-5 * time.Minute).Unix(),
	})
	require.NoError(t, err)
	mr.HSet(key, "dead", string(dead))
	mr.HSet(key, "junk", "not-json")

	// Act
	members, err := reg.Members(ctx, room)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, sessionIDs(members))
	fields, err := mr.HKeys(key)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, fields)
}
