package audit

import (
	"context"

	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// Audit actions for meetings.
const (
	ActionCreateMeeting = "meeting.create"
	ActionJoinMeeting   = "meeting.join"
	ActionLeaveMeeting  = "meeting.leave"
	ActionEndMeeting    = "meeting.end"
	ActionTimeoutLeave  = "meeting.timeout_leave"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, actor, meetingID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, actor).
		Str(log.FieldMeetingID, meetingID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action, actor, meetingID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, actor).
		Str(log.FieldMeetingID, meetingID).
		Str(FieldDetail, detail).
		Msg(msg)
}
