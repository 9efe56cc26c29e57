package domain

import "time"

// CreateMeetingRequest represents a create meeting request. Omitted flags
// take their defaults.
type CreateMeetingRequest struct {
	Title            string      `json:"title" binding:"max=255"`
	MeetingType      MeetingType `json:"meeting_type" binding:"omitempty,oneof=instant scheduled"`
	ScheduledTime    *time.Time  `json:"scheduled_time"`
	MaxParticipants  int         `json:"max_participants" binding:"omitempty,min=1,max=1000"`
	Password         string      `json:"password" binding:"max=20"`
	WaitingRoom      *bool       `json:"waiting_room"`
	AllowScreenShare *bool       `json:"allow_screen_share"`
	AllowUnmute      *bool       `json:"allow_unmute"`
	EnableChat       *bool       `json:"enable_chat"`
	EnableReactions  *bool       `json:"enable_reactions"`
}

// JoinMeetingRequest represents a join request. Guests send a name and,
// when rejoining, the guest token they were given.
type JoinMeetingRequest struct {
	Name       string `json:"name" binding:"max=100"`
	Password   string `json:"password"`
	GuestToken string `json:"guest_token"`
}

// LeaveMeetingRequest identifies a guest leaving.
type LeaveMeetingRequest struct {
	GuestToken string `json:"guest_token"`
}

// HeartbeatRequest records activity in a meeting.
type HeartbeatRequest struct {
	MeetingID string `json:"meeting_id" binding:"required"`
}

// ListMessagesRequest is the chat history query.
type ListMessagesRequest struct {
	Before   string `form:"before"`
	PageSize int    `form:"page_size"`
}

// CreateMeetingResponse is returned once, at creation. It is the only
// place the plain password is ever shown.
type CreateMeetingResponse struct {
	MeetingID   string       `json:"meeting_id"`
	Password    string       `json:"password"`
	JoinURL     string       `json:"join_url"`
	Status      string       `json:"status"`
	Meeting     *Meeting     `json:"meeting"`
	Participant *Participant `json:"participant"`
	Message     string       `json:"message"`
}

// JoinMeetingResponse is returned after a successful join.
type JoinMeetingResponse struct {
	Participant *Participant `json:"participant"`
	GuestToken  string       `json:"guest_token,omitempty"`
	Message     string       `json:"message"`
}

// MeetingSummary is the public view of a meeting.
type MeetingSummary struct {
	Meeting            *Meeting `json:"meeting"`
	HasPassword        bool     `json:"has_password"`
	ActiveParticipants int      `json:"active_participants"`
}

// ListMessagesResponse is a page of chat history, newest first.
type ListMessagesResponse struct {
	Messages   []*ChatMessage `json:"messages"`
	NextBefore string         `json:"next_before,omitempty"`
}
