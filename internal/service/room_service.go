package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/hub"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/idgen"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/registry"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// roomServiceImpl implements RoomService interface.
type roomServiceImpl struct {
	registry  registry.Registry
	hub       ConnectionHub
	publisher Publisher
	meetings  MeetingService
	hooks     []PresenceHook
}

// NewRoomService creates a new room service. meetings gates meeting rooms;
// hooks are told about every registration change.
func NewRoomService(reg registry.Registry, h ConnectionHub, publisher Publisher, meetings MeetingService, hooks ...PresenceHook) RoomService {
	return &roomServiceImpl{
		registry:  reg,
		hub:       h,
		publisher: publisher,
		meetings:  meetings,
		hooks:     hooks,
	}
}

// Admit validates a connecting client and returns its new session.
func (s *roomServiceImpl) Admit(ctx context.Context, room domain.RoomKey, creds Credentials) (*domain.Session, error) {
	if !room.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRoom, room.String())
	}

	identity := creds.Identity
	switch room.Kind {
	case domain.RoomKindMeeting:
		if err := s.meetings.Admit(ctx, room.ID, identity, creds.Password); err != nil {
			return nil, err
		}
	case domain.RoomKindChat:
		if !identity.Authenticated() {
			return nil, domain.ErrUnauthenticated
		}
	case domain.RoomKindUser:
		if !identity.Authenticated() {
			return nil, domain.ErrUnauthenticated
		}
		if identity.UserID != room.ID {
			return nil, domain.ErrUnauthorized
		}
	case domain.RoomKindWhiteboard:
	}

	session := domain.NewSession(idgen.SessionID(), room, identity)
	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldRoom, room.String()).
		Str(log.FieldSessionID, session.ID).
		Bool(log.FieldGuest, !identity.Authenticated()).
		Msg("session admitted")
	return session, nil
}

// Register attaches the client locally, adds it to the room's member set
// and announces the new member set.
func (s *roomServiceImpl) Register(ctx context.Context, client *hub.Client) error {
	session := client.Session
	s.hub.Register(client)

	entries, err := s.registry.Register(ctx, session.Room, registry.NewEntry(session))
	if err != nil {
		s.hub.Unregister(client)
		return fmt.Errorf("failed to register session: %w", err)
	}

	for _, h := range s.hooks {
		h.OnConnected(ctx, session)
	}

	s.announce(ctx, session.Room, entries)
	return nil
}

// Deregister removes the client from its room. Calling it more than once
// for the same session is a no-op.
func (s *roomServiceImpl) Deregister(ctx context.Context, client *hub.Client) error {
	session := client.Session
	if !session.MarkDisconnecting() {
		return nil
	}

	s.hub.Unregister(client)
	entries, err := s.registry.Deregister(ctx, session.Room, session.ID)
	if err != nil {
		return fmt.Errorf("failed to deregister session: %w", err)
	}

	s.announce(ctx, session.Room, entries)

	for _, h := range s.hooks {
		h.OnDisconnected(ctx, session, entries)
	}
	return nil
}

// Members returns the current member set of a room.
func (s *roomServiceImpl) Members(ctx context.Context, room domain.RoomKey) ([]domain.Member, error) {
	entries, err := s.registry.Members(ctx, room)
	if err != nil {
		return nil, err
	}
	return registry.Members(entries), nil
}

// announce publishes the membership message for the room's kind.
func (s *roomServiceImpl) announce(ctx context.Context, room domain.RoomKey, entries []registry.Entry) {
	var msg domain.Outbound
	switch room.Kind {
	case domain.RoomKindChat:
		msg = &domain.OnlineUsersMessage{Type: domain.MsgTypeOnlineUsers, Users: onlineUsers(entries)}
	case domain.RoomKindMeeting, domain.RoomKindWhiteboard:
		members := registry.Members(entries)
		msg = &domain.MembersChangedMessage{
			Type:    domain.MsgTypeMembersChanged,
			Room:    room.String(),
			Members: members,
			Count:   len(members),
		}
	default:
		return
	}

	if err := s.publisher.Publish(ctx, room, msg, ""); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoom, room.String()).Msg("failed to announce members")
	}
}

// onlineUsers returns the sorted distinct names in a chat room.
func onlineUsers(entries []registry.Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	users := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Member.Name]; ok {
			continue
		}
		seen[e.Member.Name] = struct{}{}
		users = append(users, e.Member.Name)
	}
	sort.Strings(users)
	return users
}
