package repository

import (
	"context"
	"errors"
	"time"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
)

var (
	ErrMeetingNotFound     = errors.New("meeting not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrSnapshotNotFound    = errors.New("snapshot not found")
	ErrAlertNotFound       = errors.New("alert not found")
)

// MeetingRepository persists meetings and their participants.
type MeetingRepository interface {
	// Transaction runs fn against a repository bound to one transaction.
	Transaction(ctx context.Context, fn func(repo MeetingRepository) error) error

	CreateMeeting(ctx context.Context, meeting *domain.Meeting) error
	// GetMeeting loads a meeting by external id. forUpdate takes a row lock
	// where the database supports it.
	GetMeeting(ctx context.Context, meetingID string, forUpdate bool) (*domain.Meeting, error)
	UpdateMeetingStatus(ctx context.Context, meeting *domain.Meeting) error
	MeetingIDExists(ctx context.Context, meetingID string) (bool, error)
	ListLiveMeetings(ctx context.Context) ([]*domain.Meeting, error)

	CreateParticipant(ctx context.Context, p *domain.Participant) error
	UpdateParticipant(ctx context.Context, p *domain.Participant) error
	FindParticipant(ctx context.Context, meetingPK uint, identity domain.Identity) (*domain.Participant, error)
	CountActiveParticipants(ctx context.Context, meetingPK uint) (int, error)
	ListActiveParticipants(ctx context.Context, meetingPK uint) ([]*domain.Participant, error)
	CloseActiveParticipants(ctx context.Context, meetingPK uint, at time.Time) (int64, error)
}

// SnapshotRepository persists whiteboard snapshots.
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *domain.Snapshot) error
	Latest(ctx context.Context, meetingID string) (*domain.Snapshot, error)
}

// ChatRepository persists chat room messages.
type ChatRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) error
	// ListByRoom returns up to limit messages older than the before id,
	// newest first. An empty before starts at the newest message.
	ListByRoom(ctx context.Context, roomID, before string, limit int) ([]*domain.ChatMessage, error)
}

// AlertRepository persists user alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *domain.Alert) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Alert, error)
	MarkRead(ctx context.Context, userID string, alertID uint) error
}
