package domain

// Action is something a participant may try to do inside a meeting.
type Action string

const (
	ActionEndMeeting       Action = "end_meeting"
	ActionListParticipants Action = "list_participants"
	ActionShareScreen      Action = "share_screen"
	ActionUnmute           Action = "unmute"
	ActionChat             Action = "chat"
	ActionReact            Action = "react"
)

func privileged(r Role) bool {
	return r == RoleHost || r == RoleCoHost
}

// Authorize is the single permission table for meetings, shared by the HTTP
// and WebSocket paths.
func Authorize(action Action, role Role, flags MeetingFlags) bool {
	switch action {
	case ActionEndMeeting:
		return privileged(role)
	case ActionListParticipants:
		return role == RoleHost || role == RoleCoHost || role == RoleParticipant
	case ActionShareScreen:
		return privileged(role) || (role == RoleParticipant && flags.AllowScreenShare)
	case ActionUnmute:
		return privileged(role) || (role == RoleParticipant && flags.AllowUnmute)
	case ActionChat:
		return flags.EnableChat
	case ActionReact:
		return flags.EnableReactions
	}
	return false
}

// AuthorizeMedia checks every flag a media patch turns on.
func AuthorizeMedia(patch MediaPatch, role Role, flags MeetingFlags) bool {
	if patch.SharingScreen != nil && *patch.SharingScreen && !Authorize(ActionShareScreen, role, flags) {
		return false
	}
	if patch.Muted != nil && !*patch.Muted && !Authorize(ActionUnmute, role, flags) {
		return false
	}
	return true
}
