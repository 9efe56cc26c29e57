package activity

import (
	"context"
	"time"
)

// Store records when a user was last seen in a meeting and whether their
// host has already been alerted about it.
type Store interface {
	Touch(ctx context.Context, meetingID, userID string, at time.Time) error
	// LastSeen returns ok=false when the user never sent a heartbeat or the
	// record expired.
	LastSeen(ctx context.Context, meetingID, userID string) (time.Time, bool, error)
	// MarkAlerted returns true the first time it is called for a user until
	// ttl passes or the user is touched again.
	MarkAlerted(ctx context.Context, meetingID, userID string, ttl time.Duration) (bool, error)
}
