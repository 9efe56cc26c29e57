package registry_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/registry"
)

func entry(sessionID, userID string, at time.Time) registry.Entry {
	return registry.Entry{
		Member: domain.Member{
			SessionID:   sessionID,
			UserID:      userID,
			Name:        userID,
			ConnectedAt: at,
		},
		IdentityKey: "user:" + userID,
	}
}

func TestMemoryRegistry_RegisterReturnsOrderedMembers(t *testing.T) {
	// Arrange
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	room := domain.MeetingRoom("m1")
	base := time.Now()

	// Act
	_, err := reg.Register(ctx, room, entry("s2", "bob", base.Add(time.Second)))
	require.NoError(t, err)
	members, err := reg.Register(ctx, room, entry("s1", "alice", base))
	require.NoError(t, err)

	// Assert
	require.Len(t, members, 2)
	assert.Equal(t, "s1", members[0].Member.SessionID)
	assert.Equal(t, "s2", members[1].Member.SessionID)
}

func TestMemoryRegistry_RoomsAreIsolated(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()

	_, err := reg.Register(ctx, domain.MeetingRoom("x"), entry("s1", "alice", time.Now()))
	require.NoError(t, err)
	_, err = reg.Register(ctx, domain.WhiteboardRoom("x"), entry("s2", "bob", time.Now()))
	require.NoError(t, err)

	meeting, err := reg.Members(ctx, domain.MeetingRoom("x"))
	require.NoError(t, err)
	board, err := reg.Members(ctx, domain.WhiteboardRoom("x"))
	require.NoError(t, err)

	require.Len(t, meeting, 1)
	require.Len(t, board, 1)
	assert.Equal(t, "s1", meeting[0].Member.SessionID)
	assert.Equal(t, "s2", board[0].Member.SessionID)
}

func TestMemoryRegistry_DeregisterDropsEmptyRoom(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	room := domain.ChatRoom("lobby")

	_, err := reg.Register(ctx, room, entry("s1", "alice", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, reg.RoomCount())

	members, err := reg.Deregister(ctx, room, "s1")
	require.NoError(t, err)
	assert.Empty(t, members)
	assert.Equal(t, 0, reg.RoomCount())

	// Unknown sessions are a no-op.
	members, err = reg.Deregister(ctx, room, "missing")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestMemoryRegistry_ConcurrentMembership(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	room := domain.MeetingRoom("busy")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			_, _ = reg.Register(ctx, room, entry(id, id, time.Now()))
			if i%2 == 0 {
				_, _ = reg.Deregister(ctx, room, id)
			}
		}(i)
	}
	wg.Wait()

	members, err := reg.Members(ctx, room)
	require.NoError(t, err)
	assert.Len(t, members, 25)
}

func TestHasIdentity(t *testing.T) {
	entries := []registry.Entry{entry("s1", "alice", time.Now()), entry("s2", "alice", time.Now())}

	assert.True(t, registry.HasIdentity(entries, "user:alice"))
	assert.False(t, registry.HasIdentity(entries, "user:bob"))
	assert.Len(t, registry.Members(entries), 2)
}
