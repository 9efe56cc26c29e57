package worker

import (
	"fmt"

	"github.com/hibiken/asynq"

	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// Scheduler enqueues periodic tasks.
type Scheduler struct {
	scheduler *asynq.Scheduler
}

// NewScheduler registers the periodic inactivity check on cronspec, for
// example "@every 1m".
func NewScheduler(redisOpt asynq.RedisClientOpt, inactivityCron string) (*Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				l := pkglog.L()
				l.Error().Err(err).Msg("failed to enqueue periodic task")
			}
		},
	})

	entryID, err := scheduler.Register(inactivityCron, NewInactivityCheckTask())
	if err != nil {
		return nil, fmt.Errorf("failed to register inactivity check: %w", err)
	}
	l := pkglog.L()
	l.Info().Str("entry_id", entryID).Str("schedule", inactivityCron).Msg("inactivity check scheduled")

	return &Scheduler{scheduler: scheduler}, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

// Shutdown stops the scheduler.
func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
