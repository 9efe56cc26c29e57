package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// WebSocket message types from client.
const (
	MsgTypeChat       = "chat_message"
	MsgTypeReaction   = "reaction"
	MsgTypeSignal     = "signal"
	MsgTypeMediaState = "media_state"
	MsgTypeUpdate     = "update"
	MsgTypePing       = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeMembersChanged    = "members_changed"
	MsgTypeOnlineUsers       = "online_users"
	MsgTypeParticipantJoined = "participant_joined"
	MsgTypeParticipantLeft   = "participant_left"
	MsgTypeMeetingStarted    = "meeting_started"
	MsgTypeMeetingEnded      = "meeting_ended"
	MsgTypeLoad              = "load"
	MsgTypeAlert             = "alert"
	MsgTypeError             = "error"
	MsgTypePong              = "pong"
)

// Signal kinds relayed between meeting peers.
const (
	SignalOffer     = "offer"
	SignalAnswer    = "answer"
	SignalCandidate = "ice_candidate"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownType    = errors.New("unknown message type")
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message *string         `json:"message,omitempty"`
}

// Inbound is a decoded client frame. The set of implementations is closed.
type Inbound interface {
	inbound()
}

// ChatIn is a chat line sent to a meeting or chat room.
type ChatIn struct {
	Message string
}

// ReactionIn is an emoji reaction in a meeting.
type ReactionIn struct {
	Emoji string `json:"emoji"`
}

// SignalIn is a WebRTC signal. An empty To relays to every other peer.
type SignalIn struct {
	SignalType string          `json:"signal_type"`
	To         string          `json:"to,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// MediaStateIn updates the sender's media flags.
type MediaStateIn struct {
	Patch MediaPatch
}

// WhiteboardUpdateIn carries an opaque drawing state.
type WhiteboardUpdateIn struct {
	Data json.RawMessage
}

// PingIn is an application-level keepalive.
type PingIn struct{}

func (ChatIn) inbound()             {}
func (ReactionIn) inbound()         {}
func (SignalIn) inbound()           {}
func (MediaStateIn) inbound()       {}
func (WhiteboardUpdateIn) inbound() {}
func (PingIn) inbound()             {}

// MaxChatLength bounds a single chat line.
const MaxChatLength = 4000

// DecodeInbound validates a raw frame for a room kind. A frame without a
// type but with a message is read as a chat line in meeting and chat rooms.
func DecodeInbound(kind RoomKind, raw []byte) (Inbound, error) {
	var base BaseMessage
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	msgType := base.Type
	if msgType == "" && base.Message != nil {
		msgType = MsgTypeChat
	}
	if msgType == MsgTypePing {
		return PingIn{}, nil
	}

	switch kind {
	case RoomKindMeeting:
		switch msgType {
		case MsgTypeChat:
			return decodeChat(base)
		case MsgTypeReaction:
			var r ReactionIn
			if err := decodeData(base, &r); err != nil {
				return nil, err
			}
			if r.Emoji == "" {
				return nil, fmt.Errorf("%w: reaction requires emoji", ErrMalformedFrame)
			}
			return r, nil
		case MsgTypeSignal:
			var s SignalIn
			if err := decodeData(base, &s); err != nil {
				return nil, err
			}
			switch s.SignalType {
			case SignalOffer, SignalAnswer, SignalCandidate:
			default:
				return nil, fmt.Errorf("%w: unknown signal_type %q", ErrMalformedFrame, s.SignalType)
			}
			return s, nil
		case MsgTypeMediaState:
			var p MediaPatch
			if err := decodeData(base, &p); err != nil {
				return nil, err
			}
			if p.Empty() {
				return nil, fmt.Errorf("%w: empty media_state", ErrMalformedFrame)
			}
			return MediaStateIn{Patch: p}, nil
		}
	case RoomKindChat:
		if msgType == MsgTypeChat {
			return decodeChat(base)
		}
	case RoomKindWhiteboard:
		if msgType == MsgTypeUpdate {
			if len(base.Data) == 0 || string(base.Data) == "null" {
				return nil, fmt.Errorf("%w: update requires data", ErrMalformedFrame)
			}
			return WhiteboardUpdateIn{Data: base.Data}, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, msgType)
}

func decodeChat(base BaseMessage) (Inbound, error) {
	var text string
	if base.Message != nil {
		text = *base.Message
	} else if len(base.Data) > 0 {
		if err := json.Unmarshal(base.Data, &text); err != nil {
			return nil, fmt.Errorf("%w: chat data must be a string", ErrMalformedFrame)
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message", ErrMalformedFrame)
	}
	if len(text) > MaxChatLength {
		return nil, fmt.Errorf("%w: message too long", ErrMalformedFrame)
	}
	return ChatIn{Message: text}, nil
}

func decodeData(base BaseMessage, v interface{}) error {
	if len(base.Data) == 0 {
		return fmt.Errorf("%w: %s requires data", ErrMalformedFrame, base.Type)
	}
	if err := json.Unmarshal(base.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}

// Server -> Client messages

// MembersChangedMessage is sent when a room's member set changes.
type MembersChangedMessage struct {
	Type    string   `json:"type"`
	Room    string   `json:"room"`
	Members []Member `json:"members"`
	Count   int      `json:"count"`
}

// OnlineUsersMessage lists the usernames present in a chat room.
type OnlineUsersMessage struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// ParticipantJoinedMessage is sent when a participant joins a meeting.
type ParticipantJoinedMessage struct {
	Type        string       `json:"type"`
	Participant *Participant `json:"participant"`
}

// ParticipantLeftMessage is sent when a participant leaves a meeting.
type ParticipantLeftMessage struct {
	Type          string `json:"type"`
	ParticipantID uint   `json:"participant_id"`
	User          string `json:"user"`
	Reason        string `json:"reason"`
}

// Reasons carried by participant_left.
const (
	LeaveReasonLeft    = "left"
	LeaveReasonTimeout = "timeout"
)

// MeetingStartedMessage is sent when a waiting meeting becomes active.
type MeetingStartedMessage struct {
	Type      string    `json:"type"`
	MeetingID string    `json:"meeting_id"`
	StartedAt time.Time `json:"started_at"`
}

// MeetingEndedMessage is sent to every member when a meeting ends.
type MeetingEndedMessage struct {
	Type    string `json:"type"`
	EndedBy string `json:"ended_by"`
	Message string `json:"message"`
}

// SignalMessage relays a WebRTC signal from one peer.
type SignalMessage struct {
	Type       string          `json:"type"`
	SignalType string          `json:"signal_type"`
	From       string          `json:"from"`
	FromUser   string          `json:"user"`
	To         string          `json:"to,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// ChatMessageOut is a chat line as delivered to members.
type ChatMessageOut struct {
	Type      string    `json:"type"`
	ID        string    `json:"id,omitempty"`
	Message   string    `json:"message"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
}

// MediaStateMessage announces a participant's new media flags.
type MediaStateMessage struct {
	Type          string     `json:"type"`
	ParticipantID uint       `json:"participant_id"`
	User          string     `json:"user"`
	Media         MediaState `json:"media"`
}

// ReactionMessage relays a reaction.
type ReactionMessage struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
	User  string `json:"user"`
}

// WhiteboardMessage carries whiteboard state, live ("update") or on
// connect ("load").
type WhiteboardMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AlertMessage is pushed on a user's personal channel.
type AlertMessage struct {
	Type      string    `json:"type"`
	ID        uint      `json:"id,omitempty"`
	AlertType AlertType `json:"alert_type"`
	Message   string    `json:"message"`
	MeetingID *string   `json:"meeting_id,omitempty"`
}

// PongMessage answers a ping.
type PongMessage struct {
	Type string `json:"type"`
}

// ErrorMessage is sent when an error occurs.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInvalidCredential = "INVALID_CREDENTIAL"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeMeetingFull       = "MEETING_FULL"
	ErrCodeAlreadyJoined     = "ALREADY_JOINED"
	ErrCodeNotInMeeting      = "NOT_IN_MEETING"
	ErrCodeMeetingEnded      = "MEETING_ENDED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// NewErrorMessage creates a new error message.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}

// Outbound is any server-to-client message. The type is carried inside the
// message so brokers can route without decoding the payload.
type Outbound interface {
	MessageType() string
}

func (m MembersChangedMessage) MessageType() string    { return m.Type }
func (m OnlineUsersMessage) MessageType() string       { return m.Type }
func (m ParticipantJoinedMessage) MessageType() string { return m.Type }
func (m ParticipantLeftMessage) MessageType() string   { return m.Type }
func (m MeetingStartedMessage) MessageType() string    { return m.Type }
func (m MeetingEndedMessage) MessageType() string      { return m.Type }
func (m SignalMessage) MessageType() string            { return m.Type }
func (m ChatMessageOut) MessageType() string           { return m.Type }
func (m MediaStateMessage) MessageType() string        { return m.Type }
func (m ReactionMessage) MessageType() string          { return m.Type }
func (m WhiteboardMessage) MessageType() string        { return m.Type }
func (m AlertMessage) MessageType() string             { return m.Type }
func (m PongMessage) MessageType() string              { return m.Type }
func (m ErrorMessage) MessageType() string             { return m.Type }
