package domain

import (
	"encoding/json"
	"time"
)

// MeetingModel is the GORM model for meetings table.
type MeetingModel struct {
	ID                     uint   `gorm:"primaryKey"`
	MeetingID              string `gorm:"type:varchar(12);uniqueIndex;not null"`
	Title                  string `gorm:"type:varchar(255);not null"`
	HostID                 string `gorm:"type:varchar(36);index;not null"`
	HostUsername           string `gorm:"type:varchar(150)"`
	MeetingType            string `gorm:"type:varchar(20);not null;default:'instant'"`
	PasswordHash           string `gorm:"type:varchar(100)"`
	Status                 string `gorm:"type:varchar(20);index;not null;default:'waiting'"`
	MaxParticipants        int    `gorm:"not null;default:100"`
	IsWaitingRoomEnabled   bool   `gorm:"not null;default:false"`
	AllowParticipantShare  bool   `gorm:"column:allow_participant_share_screen;not null;default:true"`
	AllowParticipantUnmute bool   `gorm:"not null;default:true"`
	EnableChat             bool   `gorm:"not null;default:true"`
	EnableReactions        bool   `gorm:"not null;default:true"`
	ScheduledTime          *time.Time
	StartedAt              *time.Time
	EndedAt                *time.Time
	CreatedAt              time.Time `gorm:"autoCreateTime"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for MeetingModel.
func (MeetingModel) TableName() string {
	return "meetings"
}

// ToDomain converts MeetingModel to domain Meeting.
func (m *MeetingModel) ToDomain() *Meeting {
	return &Meeting{
		ID:              m.ID,
		MeetingID:       m.MeetingID,
		Title:           m.Title,
		HostID:          m.HostID,
		HostUsername:    m.HostUsername,
		Type:            MeetingType(m.MeetingType),
		PasswordHash:    m.PasswordHash,
		Status:          MeetingStatus(m.Status),
		MaxParticipants: m.MaxParticipants,
		Flags: MeetingFlags{
			WaitingRoom:      m.IsWaitingRoomEnabled,
			AllowScreenShare: m.AllowParticipantShare,
			AllowUnmute:      m.AllowParticipantUnmute,
			EnableChat:       m.EnableChat,
			EnableReactions:  m.EnableReactions,
		},
		ScheduledAt: m.ScheduledTime,
		StartedAt:   m.StartedAt,
		EndedAt:     m.EndedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// MeetingToModel converts domain Meeting to MeetingModel.
func MeetingToModel(m *Meeting) *MeetingModel {
	return &MeetingModel{
		ID:                     m.ID,
		MeetingID:              m.MeetingID,
		Title:                  m.Title,
		HostID:                 m.HostID,
		HostUsername:           m.HostUsername,
		MeetingType:            string(m.Type),
		PasswordHash:           m.PasswordHash,
		Status:                 string(m.Status),
		MaxParticipants:        m.MaxParticipants,
		IsWaitingRoomEnabled:   m.Flags.WaitingRoom,
		AllowParticipantShare:  m.Flags.AllowScreenShare,
		AllowParticipantUnmute: m.Flags.AllowUnmute,
		EnableChat:             m.Flags.EnableChat,
		EnableReactions:        m.Flags.EnableReactions,
		ScheduledTime:          m.ScheduledAt,
		StartedAt:              m.StartedAt,
		EndedAt:                m.EndedAt,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

// ParticipantModel is the GORM model for participants table. Users and
// guests have separate unique indexes; NULLs never collide.
type ParticipantModel struct {
	ID              uint       `gorm:"primaryKey"`
	MeetingID       uint       `gorm:"not null;index;uniqueIndex:idx_participant_meeting_user;uniqueIndex:idx_participant_meeting_guest"`
	UserID          *string    `gorm:"type:varchar(36);uniqueIndex:idx_participant_meeting_user"`
	GuestToken      *string    `gorm:"type:varchar(32);uniqueIndex:idx_participant_meeting_guest"`
	DisplayName     string     `gorm:"type:varchar(150)"`
	Role            string     `gorm:"type:varchar(20);not null;default:'participant'"`
	IsMuted         bool       `gorm:"not null;default:false"`
	IsVideoOn       bool       `gorm:"not null;default:true"`
	IsHandRaised    bool       `gorm:"not null;default:false"`
	IsSharingScreen bool       `gorm:"not null;default:false"`
	JoinedAt        time.Time  `gorm:"not null"`
	LeftAt          *time.Time `gorm:"index"`
}

// TableName specifies the table name for ParticipantModel.
func (ParticipantModel) TableName() string {
	return "participants"
}

// ToDomain converts ParticipantModel to domain Participant.
func (m *ParticipantModel) ToDomain() *Participant {
	return &Participant{
		ID:          m.ID,
		MeetingID:   m.MeetingID,
		UserID:      m.UserID,
		GuestToken:  m.GuestToken,
		DisplayName: m.DisplayName,
		Role:        Role(m.Role),
		Media: MediaState{
			Muted:         m.IsMuted,
			VideoOn:       m.IsVideoOn,
			HandRaised:    m.IsHandRaised,
			SharingScreen: m.IsSharingScreen,
		},
		JoinedAt: m.JoinedAt,
		LeftAt:   m.LeftAt,
	}
}

// ParticipantToModel converts domain Participant to ParticipantModel.
func ParticipantToModel(p *Participant) *ParticipantModel {
	return &ParticipantModel{
		ID:              p.ID,
		MeetingID:       p.MeetingID,
		UserID:          p.UserID,
		GuestToken:      p.GuestToken,
		DisplayName:     p.DisplayName,
		Role:            string(p.Role),
		IsMuted:         p.Media.Muted,
		IsVideoOn:       p.Media.VideoOn,
		IsHandRaised:    p.Media.HandRaised,
		IsSharingScreen: p.Media.SharingScreen,
		JoinedAt:        p.JoinedAt,
		LeftAt:          p.LeftAt,
	}
}

// WhiteboardSnapshotModel is the GORM model for whiteboard_snapshots table.
type WhiteboardSnapshotModel struct {
	ID        string    `gorm:"type:varchar(26);primaryKey"`
	MeetingID string    `gorm:"type:varchar(12);not null;index:idx_snapshot_meeting_created,priority:1"`
	Data      string    `gorm:"type:text;not null"`
	CreatedBy *string   `gorm:"type:varchar(36)"`
	CreatedAt time.Time `gorm:"not null;index:idx_snapshot_meeting_created,priority:2"`
}

// TableName specifies the table name for WhiteboardSnapshotModel.
func (WhiteboardSnapshotModel) TableName() string {
	return "whiteboard_snapshots"
}

// ToDomain converts WhiteboardSnapshotModel to domain Snapshot.
func (m *WhiteboardSnapshotModel) ToDomain() *Snapshot {
	return &Snapshot{
		ID:        m.ID,
		MeetingID: m.MeetingID,
		Data:      json.RawMessage(m.Data),
		AuthorID:  m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}

// SnapshotToModel converts domain Snapshot to WhiteboardSnapshotModel.
func SnapshotToModel(s *Snapshot) *WhiteboardSnapshotModel {
	return &WhiteboardSnapshotModel{
		ID:        s.ID,
		MeetingID: s.MeetingID,
		Data:      string(s.Data),
		CreatedBy: s.AuthorID,
		CreatedAt: s.CreatedAt,
	}
}

// ChatMessageModel is the GORM model for chat_messages table.
type ChatMessageModel struct {
	ID        string    `gorm:"type:varchar(26);primaryKey"`
	RoomID    string    `gorm:"type:varchar(255);not null;index:idx_chat_room_ts,priority:1"`
	UserID    string    `gorm:"type:varchar(36);not null"`
	Username  string    `gorm:"column:user;type:varchar(150);not null"`
	Message   string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"not null;index:idx_chat_room_ts,priority:2"`
}

// TableName specifies the table name for ChatMessageModel.
func (ChatMessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts ChatMessageModel to domain ChatMessage.
func (m *ChatMessageModel) ToDomain() *ChatMessage {
	return &ChatMessage{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Username:  m.Username,
		Message:   m.Message,
		Timestamp: m.Timestamp,
	}
}

// ChatMessageToModel converts domain ChatMessage to ChatMessageModel.
func ChatMessageToModel(c *ChatMessage) *ChatMessageModel {
	return &ChatMessageModel{
		ID:        c.ID,
		RoomID:    c.RoomID,
		UserID:    c.UserID,
		Username:  c.Username,
		Message:   c.Message,
		Timestamp: c.Timestamp,
	}
}

// AlertModel is the GORM model for alerts table.
type AlertModel struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"type:varchar(36);not null;index"`
	MeetingID *string   `gorm:"type:varchar(12);index"`
	Type      string    `gorm:"type:varchar(50);not null"`
	Message   string    `gorm:"type:text;not null"`
	IsRead    bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for AlertModel.
func (AlertModel) TableName() string {
	return "alerts"
}

// ToDomain converts AlertModel to domain Alert.
func (m *AlertModel) ToDomain() *Alert {
	return &Alert{
		ID:        m.ID,
		UserID:    m.UserID,
		MeetingID: m.MeetingID,
		Type:      AlertType(m.Type),
		Message:   m.Message,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

// AlertToModel converts domain Alert to AlertModel.
func AlertToModel(a *Alert) *AlertModel {
	return &AlertModel{
		ID:        a.ID,
		UserID:    a.UserID,
		MeetingID: a.MeetingID,
		Type:      string(a.Type),
		Message:   a.Message,
		IsRead:    a.IsRead,
		CreatedAt: a.CreatedAt,
	}
}

// Models lists every table for auto-migration.
func Models() []interface{} {
	return []interface{}{
		&MeetingModel{},
		&ParticipantModel{},
		&WhiteboardSnapshotModel{},
		&ChatMessageModel{},
		&AlertModel{},
	}
}
