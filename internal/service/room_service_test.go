package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/hub"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/registry"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
)

type presenceRecorder struct {
	mu           sync.Mutex
	connected    []string
	disconnected []string
	remaining    [][]registry.Entry
}

func (p *presenceRecorder) OnConnected(ctx context.Context, session *domain.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = append(p.connected, session.ID)
}

func (p *presenceRecorder) OnDisconnected(ctx context.Context, session *domain.Session, remaining []registry.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnected = append(p.disconnected, session.ID)
	p.remaining = append(p.remaining, remaining)
}

type roomFixture struct {
	*meetingFixture
	hub      *hub.Hub
	presence *presenceRecorder
	rooms    service.RoomService
}

func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()
	mf := newMeetingFixture(t, config.MeetingConfig{})
	h := hub.NewHub(config.WebSocketConfig{})
	go h.Run()
	t.Cleanup(h.Stop)

	presence := &presenceRecorder{}
	return &roomFixture{
		meetingFixture: mf,
		hub:            h,
		presence:       presence,
		rooms:          service.NewRoomService(mf.registry, h, mf.publisher, mf.svc, presence),
	}
}

func (f *roomFixture) connect(t *testing.T, room domain.RoomKey, creds service.Credentials) *hub.Client {
	t.Helper()
	ctx := context.Background()
	session, err := f.rooms.Admit(ctx, room, creds)
	require.NoError(t, err)
	client := hub.NewClient(f.hub, nil, session)
	require.NoError(t, f.rooms.Register(ctx, client))
	return client
}

func TestRoomService_AdmitRules(t *testing.T) {
	ctx := context.Background()
	f := newRoomFixture(t)
	resp := f.create(t, &domain.CreateMeetingRequest{Password: "pw"})
	guest := domain.Identity{GuestToken: "tok", DisplayName: "visitor"}

	tests := []struct {
		name    string
		room    domain.RoomKey
		creds   service.Credentials
		wantErr error
	}{
		{"meeting with password", domain.MeetingRoom(resp.MeetingID), service.Credentials{Identity: alice, Password: "pw"}, nil},
		{"meeting wrong password", domain.MeetingRoom(resp.MeetingID), service.Credentials{Identity: alice, Password: "no"}, domain.ErrInvalidCredential},
		{"meeting unknown", domain.MeetingRoom("000-000-0000"), service.Credentials{Identity: alice}, domain.ErrNotFound},
		{"chat user", domain.ChatRoom("general"), service.Credentials{Identity: alice}, nil},
		{"chat guest", domain.ChatRoom("general"), service.Credentials{Identity: guest}, domain.ErrUnauthenticated},
		{"whiteboard guest", domain.WhiteboardRoom(resp.MeetingID), service.Credentials{Identity: guest}, nil},
		{"own alerts", domain.UserRoom(alice.UserID), service.Credentials{Identity: alice}, nil},
		{"someone else's alerts", domain.UserRoom(bob.UserID), service.Credentials{Identity: alice}, domain.ErrUnauthorized},
		{"invalid room", domain.RoomKey{Kind: "lobby", ID: "x"}, service.Credentials{Identity: alice}, domain.ErrInvalidRoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := f.rooms.Admit(ctx, tt.room, tt.creds)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, session.ID)
			assert.Equal(t, tt.room, session.Room)
			assert.True(t, session.IsConnected())
		})
	}
}

func TestRoomService_RegisterAnnouncesMembers(t *testing.T) {
	// Arrange
	f := newRoomFixture(t)
	resp := f.create(t, &domain.CreateMeetingRequest{})
	room := domain.MeetingRoom(resp.MeetingID)

	// Act
	a := f.connect(t, room, service.Credentials{Identity: host})
	b := f.connect(t, room, service.Credentials{Identity: alice, Password: resp.Password})

	// Assert
	msg, ok := f.publisher.last(room).(*domain.MembersChangedMessage)
	require.True(t, ok)
	assert.Equal(t, 2, msg.Count)
	assert.Equal(t, room.String(), msg.Room)
	assert.Equal(t, a.ID, msg.Members[0].SessionID)
	assert.Equal(t, b.ID, msg.Members[1].SessionID)

	members, err := f.rooms.Members(context.Background(), room)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, []string{a.ID, b.ID}, f.presence.connected)
}

func TestRoomService_DeregisterOnce(t *testing.T) {
	ctx := context.Background()
	f := newRoomFixture(t)
	resp := f.create(t, &domain.CreateMeetingRequest{})
	room := domain.WhiteboardRoom(resp.MeetingID)
	a := f.connect(t, room, service.Credentials{Identity: alice})
	f.connect(t, room, service.Credentials{Identity: bob})

	require.NoError(t, f.rooms.Deregister(ctx, a))
	require.NoError(t, f.rooms.Deregister(ctx, a))

	msg, ok := f.publisher.last(room).(*domain.MembersChangedMessage)
	require.True(t, ok)
	assert.Equal(t, 1, msg.Count)

	assert.Equal(t, []string{a.ID}, f.presence.disconnected)
	require.Len(t, f.presence.remaining, 1)
	assert.False(t, registry.HasIdentity(f.presence.remaining[0], alice.Key()))
	assert.True(t, registry.HasIdentity(f.presence.remaining[0], bob.Key()))
}

func TestRoomService_ChatAnnouncesOnlineUsers(t *testing.T) {
	f := newRoomFixture(t)
	room := domain.ChatRoom("general")

	f.connect(t, room, service.Credentials{Identity: bob})
	f.connect(t, room, service.Credentials{Identity: alice})
	f.connect(t, room, service.Credentials{Identity: alice})

	msg, ok := f.publisher.last(room).(*domain.OnlineUsersMessage)
	require.True(t, ok)
	assert.Equal(t, []string{"alice", "bob"}, msg.Users)
}

func TestRoomService_UserRoomIsSilent(t *testing.T) {
	f := newRoomFixture(t)
	room := domain.UserRoom(alice.UserID)

	f.connect(t, room, service.Credentials{Identity: alice})

	assert.Empty(t, f.publisher.types(room))
}
