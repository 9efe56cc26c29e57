package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// WorkerServer wraps the asynq server and its handlers.
type WorkerServer struct {
	server *asynq.Server
	alerts service.AlertService
}

// NewWorkerServer creates a WorkerServer.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, concurrency int, alerts service.AlertService) *WorkerServer {
	if concurrency <= 0 {
		concurrency = 10
	}
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueDefault: 3,
				QueueLow:     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				l := pkglog.L()
				l.Error().
					Err(err).
					Str(pkglog.FieldTaskID, taskID).
					Str(pkglog.FieldTaskType, task.Type()).
					Int("retries", retryCount).
					Int("max_retry", maxRetry).
					Msg("task failed")
			}),
		},
	)

	return &WorkerServer{
		server: server,
		alerts: alerts,
	}
}

// Mux returns the task routing used by the server.
func (ws *WorkerServer) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeInactivityCheck, NewInactivityHandler(ws.alerts))
	return mux
}

// Start runs the server until Shutdown. It blocks.
func (ws *WorkerServer) Start() error {
	l := pkglog.L()
	l.Info().Msg("worker server starting")
	if err := ws.server.Run(ws.Mux()); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		return err
	}
	l.Info().Msg("worker server stopped")
	return nil
}

// Shutdown stops the server after in-flight tasks finish.
func (ws *WorkerServer) Shutdown() {
	ws.server.Shutdown()
}
