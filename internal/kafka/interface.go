package kafka

import (
	"context"
	"time"
)

// MeetingLifecycleEvent is the record written to the meeting events topic.
type MeetingLifecycleEvent struct {
	Type       string     `json:"type"`
	MeetingID  string     `json:"meeting_id"`
	HostID     string     `json:"host_id"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	OccurredAt int64      `json:"timestamp"`
}

// MeetingEventProducer writes meeting lifecycle events.
type MeetingEventProducer interface {
	Produce(ctx context.Context, event *MeetingLifecycleEvent) error
	Close() error
}
