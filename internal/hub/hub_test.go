package hub_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/hub"
)

func startHub(t *testing.T, cfg config.WebSocketConfig) *hub.Hub {
	t.Helper()
	h := hub.NewHub(cfg)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func newClient(h *hub.Hub, sessionID string, room domain.RoomKey) *hub.Client {
	session := domain.NewSession(sessionID, room, domain.Identity{UserID: sessionID, Username: sessionID})
	return hub.NewClient(h, nil, session)
}

func receive(t *testing.T, c *hub.Client) string {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send queue closed")
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return ""
	}
}

func TestHub_DeliverPreservesOrder(t *testing.T) {
	// Arrange
	h := startHub(t, config.WebSocketConfig{})
	room := domain.MeetingRoom("m1")
	a := newClient(h, "a", room)
	b := newClient(h, "b", room)
	h.Register(a)
	h.Register(b)

	// Act
	for i := 0; i < 20; i++ {
		h.Deliver(room.String(), []byte(fmt.Sprintf("%d", i)), "")
	}

	// Assert
	for _, c := range []*hub.Client{a, b} {
		for i := 0; i < 20; i++ {
			assert.Equal(t, fmt.Sprintf("%d", i), receive(t, c))
		}
	}
}

func TestHub_DeliverExcludesSender(t *testing.T) {
	h := startHub(t, config.WebSocketConfig{})
	room := domain.MeetingRoom("m1")
	sender := newClient(h, "sender", room)
	peer := newClient(h, "peer", room)
	h.Register(sender)
	h.Register(peer)

	h.Deliver(room.String(), []byte("offer"), sender.ID)
	h.Deliver(room.String(), []byte("all"), "")

	assert.Equal(t, "offer", receive(t, peer))
	assert.Equal(t, "all", receive(t, peer))
	assert.Equal(t, "all", receive(t, sender))
}

func TestHub_RoomsDoNotLeak(t *testing.T) {
	h := startHub(t, config.WebSocketConfig{})
	inMeeting := newClient(h, "a", domain.MeetingRoom("x"))
	onBoard := newClient(h, "b", domain.WhiteboardRoom("x"))
	h.Register(inMeeting)
	h.Register(onBoard)

	h.Deliver(domain.MeetingRoom("x").String(), []byte("meeting"), "")
	h.Deliver(domain.WhiteboardRoom("x").String(), []byte("board"), "")

	assert.Equal(t, "meeting", receive(t, inMeeting))
	assert.Equal(t, "board", receive(t, onBoard))
	assert.Equal(t, 1, h.RoomSize(domain.MeetingRoom("x").String()))
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	// Arrange
	h := startHub(t, config.WebSocketConfig{SendBuffer: 1})
	room := domain.ChatRoom("lobby")
	slow := newClient(h, "slow", room)
	fast := newClient(h, "fast", room)
	h.Register(slow)
	h.Register(fast)

	// Act
	h.Deliver(room.String(), []byte("one"), "")
	assert.Equal(t, "one", receive(t, fast))
	h.Deliver(room.String(), []byte("two"), "")
	assert.Equal(t, "two", receive(t, fast))

	// Assert
	assert.Eventually(t, func() bool {
		return h.RoomSize(room.String()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "one", receive(t, slow))
	_, ok := <-slow.Send
	assert.False(t, ok, "slow client's queue should be closed")
}

func TestHub_UnregisterIgnoresStaleClient(t *testing.T) {
	h := startHub(t, config.WebSocketConfig{})
	room := domain.MeetingRoom("m1")
	old := newClient(h, "s1", room)
	h.Register(old)
	replacement := newClient(h, "s1", room)
	h.Register(replacement)

	h.Unregister(old)

	h.Deliver(room.String(), []byte("still here"), "")
	assert.Equal(t, "still here", receive(t, replacement))
	assert.Equal(t, 1, h.ClientCount())
}

func TestHub_StopClosesClients(t *testing.T) {
	h := hub.NewHub(config.WebSocketConfig{})
	go h.Run()
	c := newClient(h, "a", domain.ChatRoom("lobby"))
	h.Register(c)

	h.Stop()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-c.Send:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
