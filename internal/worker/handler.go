package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// InactivityHandler runs the inactivity check task.
type InactivityHandler struct {
	alerts service.AlertService
}

// NewInactivityHandler creates an InactivityHandler.
func NewInactivityHandler(alerts service.AlertService) *InactivityHandler {
	return &InactivityHandler{alerts: alerts}
}

// ProcessTask implements asynq.Handler.
func (h *InactivityHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	ctx = pkglog.WithFields(ctx, pkglog.FieldTaskType, t.Type(), pkglog.FieldTaskID, taskID)
	l := pkglog.Ctx(ctx)

	raised, err := h.alerts.CheckInactivity(ctx)
	if err != nil {
		return fmt.Errorf("inactivity check failed: %w", err)
	}

	l.Info().Int("alerts_raised", raised).Msg("inactivity check completed")
	return nil
}
