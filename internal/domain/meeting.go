package domain

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingStatusWaiting MeetingStatus = "waiting"
	MeetingStatusActive  MeetingStatus = "active"
	MeetingStatusEnded   MeetingStatus = "ended"
)

// MeetingType distinguishes meetings started at creation from scheduled ones.
type MeetingType string

const (
	MeetingTypeInstant   MeetingType = "instant"
	MeetingTypeScheduled MeetingType = "scheduled"
)

// Role is a participant's role within a meeting.
type Role string

const (
	RoleHost        Role = "host"
	RoleCoHost      Role = "co_host"
	RoleParticipant Role = "participant"
)

// MeetingFlags are the per-meeting feature switches.
type MeetingFlags struct {
	WaitingRoom      bool `json:"waiting_room"`
	AllowScreenShare bool `json:"allow_screen_share"`
	AllowUnmute      bool `json:"allow_unmute"`
	EnableChat       bool `json:"enable_chat"`
	EnableReactions  bool `json:"enable_reactions"`
}

// DefaultMeetingFlags matches what a meeting gets when the creator does not
// say otherwise.
func DefaultMeetingFlags() MeetingFlags {
	return MeetingFlags{
		AllowScreenShare: true,
		AllowUnmute:      true,
		EnableChat:       true,
		EnableReactions:  true,
	}
}

// Meeting is a hosted video meeting.
type Meeting struct {
	ID              uint          `json:"-"`
	MeetingID       string        `json:"meeting_id"`
	Title           string        `json:"title"`
	HostID          string        `json:"host_id"`
	HostUsername    string        `json:"host_username"`
	Type            MeetingType   `json:"meeting_type"`
	PasswordHash    string        `json:"-"`
	Status          MeetingStatus `json:"status"`
	MaxParticipants int           `json:"max_participants"`
	Flags           MeetingFlags  `json:"settings"`
	ScheduledAt     *time.Time    `json:"scheduled_time,omitempty"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

var transitions = map[MeetingStatus]MeetingStatus{
	MeetingStatusWaiting: MeetingStatusActive,
	MeetingStatusActive:  MeetingStatusEnded,
}

// CanTransition reports whether from → to is a legal lifecycle step.
// Waiting may also end directly.
func CanTransition(from, to MeetingStatus) bool {
	if from == MeetingStatusWaiting && to == MeetingStatusEnded {
		return true
	}
	next, ok := transitions[from]
	return ok && next == to
}

// IsEnded reports whether the meeting has ended.
func (m *Meeting) IsEnded() bool {
	return m.Status == MeetingStatusEnded
}

// HasPassword reports whether joining requires a password.
func (m *Meeting) HasPassword() bool {
	return m.PasswordHash != ""
}

// PasswordMatches checks password against the stored hash. A meeting
// without a password accepts anything.
func (m *Meeting) PasswordMatches(password string) bool {
	if !m.HasPassword() {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) == nil
}

// Start moves a waiting meeting to active.
func (m *Meeting) Start(now time.Time) error {
	if m.IsEnded() {
		return ErrEnded
	}
	if !CanTransition(m.Status, MeetingStatusActive) {
		return ErrInvalidTransition
	}
	m.Status = MeetingStatusActive
	m.StartedAt = &now
	return nil
}

// End moves the meeting to ended.
func (m *Meeting) End(now time.Time) error {
	if m.IsEnded() {
		return ErrEnded
	}
	if !CanTransition(m.Status, MeetingStatusEnded) {
		return ErrInvalidTransition
	}
	m.Status = MeetingStatusEnded
	m.EndedAt = &now
	return nil
}

// MediaState is a participant's media flags.
type MediaState struct {
	Muted         bool `json:"is_muted"`
	VideoOn       bool `json:"is_video_on"`
	HandRaised    bool `json:"is_hand_raised"`
	SharingScreen bool `json:"is_sharing_screen"`
}

// MediaPatch is a partial MediaState update; nil fields are left unchanged.
type MediaPatch struct {
	Muted         *bool `json:"is_muted,omitempty"`
	VideoOn       *bool `json:"is_video_on,omitempty"`
	HandRaised    *bool `json:"is_hand_raised,omitempty"`
	SharingScreen *bool `json:"is_sharing_screen,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p MediaPatch) Empty() bool {
	return p.Muted == nil && p.VideoOn == nil && p.HandRaised == nil && p.SharingScreen == nil
}

// Participant is the durable membership of one identity in one meeting.
// Authenticated users are keyed by UserID, guests by GuestToken.
type Participant struct {
	ID          uint       `json:"id"`
	MeetingID   uint       `json:"-"`
	UserID      *string    `json:"user_id,omitempty"`
	GuestToken  *string    `json:"-"`
	DisplayName string     `json:"user"`
	Role        Role       `json:"role"`
	Media       MediaState `json:"media"`
	JoinedAt    time.Time  `json:"joined_at"`
	LeftAt      *time.Time `json:"left_at,omitempty"`
}

// NewParticipant builds a fresh active row for identity.
func NewParticipant(meetingID uint, identity Identity, role Role, now time.Time) *Participant {
	p := &Participant{
		MeetingID:   meetingID,
		DisplayName: identity.Name(),
		Role:        role,
		Media:       MediaState{VideoOn: true},
		JoinedAt:    now,
	}
	if identity.Authenticated() {
		uid := identity.UserID
		p.UserID = &uid
	} else {
		token := identity.GuestToken
		p.GuestToken = &token
	}
	return p
}

// IsActive reports whether the participant is currently in the meeting.
func (p *Participant) IsActive() bool {
	return p.LeftAt == nil
}

// Leave closes the row.
func (p *Participant) Leave(now time.Time) {
	p.LeftAt = &now
	p.Media.SharingScreen = false
	p.Media.HandRaised = false
}

// Rejoin reopens a closed row, keeping its id and role.
func (p *Participant) Rejoin(now time.Time, displayName string) {
	p.LeftAt = nil
	p.JoinedAt = now
	if displayName != "" {
		p.DisplayName = displayName
	}
}

// Apply merges patch into the media state.
func (p *Participant) Apply(patch MediaPatch) {
	if patch.Muted != nil {
		p.Media.Muted = *patch.Muted
	}
	if patch.VideoOn != nil {
		p.Media.VideoOn = *patch.VideoOn
	}
	if patch.HandRaised != nil {
		p.Media.HandRaised = *patch.HandRaised
	}
	if patch.SharingScreen != nil {
		p.Media.SharingScreen = *patch.SharingScreen
	}
}

// OwnedBy reports whether the row belongs to identity.
func (p *Participant) OwnedBy(identity Identity) bool {
	if identity.Authenticated() {
		return p.UserID != nil && *p.UserID == identity.UserID
	}
	return identity.GuestToken != "" && p.GuestToken != nil && *p.GuestToken == identity.GuestToken
}

// Identity reconstructs the identity owning the row.
func (p *Participant) Identity() Identity {
	var id Identity
	if p.UserID != nil {
		id.UserID = *p.UserID
		id.Username = p.DisplayName
	} else {
		if p.GuestToken != nil {
			id.GuestToken = *p.GuestToken
		}
		id.DisplayName = p.DisplayName
	}
	return id
}
