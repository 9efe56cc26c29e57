package domain

import (
	"sync"
	"time"
)

// Identity is who a connection or request acts as. Authenticated callers
// carry UserID; guests carry a GuestToken and a display name.
type Identity struct {
	UserID      string `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	GuestToken  string `json:"-"`
	DisplayName string `json:"display_name,omitempty"`
}

// Authenticated reports whether the identity belongs to a signed-in user.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Anonymous reports whether the identity carries nothing to key a
// participant row on.
func (i Identity) Anonymous() bool {
	return i.UserID == "" && i.GuestToken == ""
}

// Name is the name shown to other members.
func (i Identity) Name() string {
	if i.Username != "" {
		return i.Username
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return "guest"
}

// Key returns a stable key for the identity, distinct for users and guests.
func (i Identity) Key() string {
	if i.UserID != "" {
		return "user:" + i.UserID
	}
	return "guest:" + i.GuestToken
}

// Liveness is the connection state of a session.
type Liveness string

const (
	LivenessConnected     Liveness = "connected"
	LivenessDisconnecting Liveness = "disconnecting"
)

// Session represents one WebSocket connection in one room.
type Session struct {
	ID           string
	Room         RoomKey
	Identity     Identity
	CreatedAt    time.Time
	LastActiveAt time.Time
	liveness     Liveness
	mu           sync.RWMutex
}

// NewSession creates a connected session.
func NewSession(id string, room RoomKey, identity Identity) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		Room:         room,
		Identity:     identity,
		CreatedAt:    now,
		LastActiveAt: now,
		liveness:     LivenessConnected,
	}
}

// UpdateActivity updates the last active timestamp.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now().UTC()
}

// LastActive returns the last active timestamp.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastActiveAt
}

// MarkDisconnecting flips the session to disconnecting. It returns false if
// it already was.
func (s *Session) MarkDisconnecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveness == LivenessDisconnecting {
		return false
	}
	s.liveness = LivenessDisconnecting
	return true
}

// IsConnected reports whether the session is still live.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveness == LivenessConnected
}

// Member returns the registry view of the session.
func (s *Session) Member() Member {
	return Member{
		SessionID:   s.ID,
		UserID:      s.Identity.UserID,
		Name:        s.Identity.Name(),
		Guest:       !s.Identity.Authenticated(),
		ConnectedAt: s.CreatedAt,
	}
}

// Member is one entry of a room's member set.
type Member struct {
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name"`
	Guest       bool      `json:"guest"`
	ConnectedAt time.Time `json:"connected_at"`
}
