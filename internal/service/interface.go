package service

import (
	"context"
	"encoding/json"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/hub"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/registry"
)

// Publisher fans messages out to rooms and personal channels.
type Publisher interface {
	Publish(ctx context.Context, room domain.RoomKey, msg domain.Outbound, exclude string) error
	Notify(ctx context.Context, userID string, msg domain.Outbound) error
}

// ConnectionHub attaches and detaches local connections.
type ConnectionHub interface {
	Register(client *hub.Client)
	Unregister(client *hub.Client)
}

// Credentials is what a connecting client presents.
type Credentials struct {
	Identity domain.Identity
	Password string
}

// RoomService admits sessions into rooms and tracks their membership.
type RoomService interface {
	Admit(ctx context.Context, room domain.RoomKey, creds Credentials) (*domain.Session, error)
	Register(ctx context.Context, client *hub.Client) error
	Deregister(ctx context.Context, client *hub.Client) error
	Members(ctx context.Context, room domain.RoomKey) ([]domain.Member, error)
}

// PresenceHook is told about sessions joining and leaving rooms. remaining
// is the room's member set after the session left.
type PresenceHook interface {
	OnConnected(ctx context.Context, session *domain.Session)
	OnDisconnected(ctx context.Context, session *domain.Session, remaining []registry.Entry)
}

// MeetingEvent names a meeting lifecycle change delivered to hooks.
type MeetingEvent string

const (
	MeetingCreated MeetingEvent = "meeting.created"
	MeetingStarted MeetingEvent = "meeting.started"
	MeetingEnded   MeetingEvent = "meeting.ended"
)

// MeetingHook receives lifecycle events. Hooks run on their own goroutine
// and never delay the caller.
type MeetingHook interface {
	OnMeetingEvent(ctx context.Context, event MeetingEvent, meeting *domain.Meeting)
}

// MeetingService defines the meeting lifecycle and participant admission.
type MeetingService interface {
	Create(ctx context.Context, host domain.Identity, req *domain.CreateMeetingRequest) (*domain.CreateMeetingResponse, error)
	Get(ctx context.Context, meetingID string) (*domain.MeetingSummary, error)
	Join(ctx context.Context, meetingID string, identity domain.Identity, password string) (*domain.JoinMeetingResponse, error)
	Leave(ctx context.Context, meetingID string, identity domain.Identity) error
	End(ctx context.Context, meetingID string, identity domain.Identity) error
	ListParticipants(ctx context.Context, meetingID string, identity domain.Identity) ([]*domain.Participant, error)
	UpdateMediaState(ctx context.Context, meetingID string, identity domain.Identity, patch domain.MediaPatch) (*domain.Participant, error)
	// Admit checks whether identity may open a live connection to the meeting.
	Admit(ctx context.Context, meetingID string, identity domain.Identity, password string) error
	Chat(ctx context.Context, meetingID string, identity domain.Identity, text string) error
	React(ctx context.Context, meetingID string, identity domain.Identity, emoji string) error
	PresenceHook
	Stop() error
}

// SnapshotService stores whiteboard state.
type SnapshotService interface {
	// Save appends a snapshot. It returns nil, nil when the meeting does not
	// exist.
	Save(ctx context.Context, meetingID string, data json.RawMessage, authorID *string) (*domain.Snapshot, error)
	Latest(ctx context.Context, meetingID string) (json.RawMessage, bool, error)
}

// ChatService handles persisted chat rooms.
type ChatService interface {
	Send(ctx context.Context, roomID string, identity domain.Identity, text string) (*domain.ChatMessage, error)
	History(ctx context.Context, roomID string, req *domain.ListMessagesRequest) (*domain.ListMessagesResponse, error)
}

// AlertService handles per-user alerts and meeting activity.
type AlertService interface {
	Heartbeat(ctx context.Context, userID, meetingID string) error
	List(ctx context.Context, userID string) ([]*domain.Alert, error)
	MarkRead(ctx context.Context, userID string, alertID uint) error
	Raise(ctx context.Context, alert *domain.Alert) error
	// CheckInactivity alerts hosts about participants that went quiet and
	// returns how many alerts were raised.
	CheckInactivity(ctx context.Context) (int, error)
}
