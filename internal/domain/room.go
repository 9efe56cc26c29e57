package domain

import (
	"fmt"
	"strings"
)

// RoomKind is the namespace a room belongs to.
type RoomKind string

const (
	RoomKindMeeting    RoomKind = "meeting"
	RoomKindChat       RoomKind = "chat"
	RoomKindWhiteboard RoomKind = "whiteboard"
	// RoomKindUser is the implicit personal channel of one user.
	RoomKindUser RoomKind = "user"
)

// Valid reports whether k is a known room kind.
func (k RoomKind) Valid() bool {
	switch k {
	case RoomKindMeeting, RoomKindChat, RoomKindWhiteboard, RoomKindUser:
		return true
	}
	return false
}

// RoomKey identifies a room across all instances.
type RoomKey struct {
	Kind RoomKind
	ID   string
}

func MeetingRoom(meetingID string) RoomKey {
	return RoomKey{Kind: RoomKindMeeting, ID: meetingID}
}

func ChatRoom(roomID string) RoomKey {
	return RoomKey{Kind: RoomKindChat, ID: roomID}
}

func WhiteboardRoom(meetingID string) RoomKey {
	return RoomKey{Kind: RoomKindWhiteboard, ID: meetingID}
}

func UserRoom(userID string) RoomKey {
	return RoomKey{Kind: RoomKindUser, ID: userID}
}

// String renders the key as "kind:id".
func (k RoomKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// Valid reports whether the key has a known kind and a non-empty id.
func (k RoomKey) Valid() bool {
	return k.Kind.Valid() && k.ID != ""
}

// ParseRoomKey parses the output of RoomKey.String.
func ParseRoomKey(s string) (RoomKey, error) {
	kind, id, ok := strings.Cut(s, ":")
	key := RoomKey{Kind: RoomKind(kind), ID: id}
	if !ok || !key.Valid() {
		return RoomKey{}, fmt.Errorf("%w: %q", ErrInvalidRoom, s)
	}
	return key, nil
}
