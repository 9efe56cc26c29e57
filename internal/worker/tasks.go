package worker

import (
	"time"

	"github.com/hibiken/asynq"
)

// Task types
const (
	TypeInactivityCheck = "alerts:check_inactivity"
)

// Queues
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// NewInactivityCheckTask creates the periodic inactivity check. It carries
// no payload.
func NewInactivityCheckTask() *asynq.Task {
	return asynq.NewTask(TypeInactivityCheck, nil,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.Timeout(time.Minute),
	)
}
