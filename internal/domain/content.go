package domain

import (
	"encoding/json"
	"time"
)

// Snapshot is one saved whiteboard state. Snapshots are append-only and
// only the newest one per meeting is ever replayed.
type Snapshot struct {
	ID        string          `json:"id"`
	MeetingID string          `json:"meeting_id"`
	Data      json.RawMessage `json:"data"`
	AuthorID  *string         `json:"created_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ChatMessage is a persisted chat room message.
type ChatMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertType classifies alerts.
type AlertType string

const (
	AlertTypeInactivity      AlertType = "inactivity"
	AlertTypeRecordingFailed AlertType = "recording_failed"
	AlertTypeMeetingStart    AlertType = "meeting_start"
)

// Alert is a persisted notification for one user.
type Alert struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"user_id"`
	MeetingID *string   `json:"meeting,omitempty"`
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
