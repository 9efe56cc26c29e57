package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/activity"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/repository"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

const alertListLimit = 50

var ErrAlertNotFound = errors.New("alert not found")

// alertServiceImpl implements AlertService interface.
type alertServiceImpl struct {
	alerts    repository.AlertRepository
	meetings  repository.MeetingRepository
	activity  activity.Store
	publisher Publisher
	config    config.AlertsConfig
	now       func() time.Time
}

// NewAlertService creates a new alert service.
func NewAlertService(alerts repository.AlertRepository, meetings repository.MeetingRepository, store activity.Store, publisher Publisher, cfg config.AlertsConfig) AlertService {
	if cfg.InactivityThreshold <= 0 {
		cfg.InactivityThreshold = 3 * time.Minute
	}
	return &alertServiceImpl{
		alerts:    alerts,
		meetings:  meetings,
		activity:  store,
		publisher: publisher,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Heartbeat records that userID is active in meetingID.
func (s *alertServiceImpl) Heartbeat(ctx context.Context, userID, meetingID string) error {
	exists, err := s.meetings.MeetingIDExists(ctx, meetingID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return s.activity.Touch(ctx, meetingID, userID, s.now())
}

// List returns the newest alerts of a user.
func (s *alertServiceImpl) List(ctx context.Context, userID string) ([]*domain.Alert, error) {
	return s.alerts.ListByUser(ctx, userID, alertListLimit)
}

// MarkRead marks one of the user's alerts read.
func (s *alertServiceImpl) MarkRead(ctx context.Context, userID string, alertID uint) error {
	if err := s.alerts.MarkRead(ctx, userID, alertID); err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return ErrAlertNotFound
		}
		return err
	}
	return nil
}

// Raise persists an alert and pushes it to the user's live sessions.
func (s *alertServiceImpl) Raise(ctx context.Context, alert *domain.Alert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = s.now()
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return err
	}

	err := s.publisher.Notify(ctx, alert.UserID, &domain.AlertMessage{
		Type:      domain.MsgTypeAlert,
		ID:        alert.ID,
		AlertType: alert.Type,
		Message:   alert.Message,
		MeetingID: alert.MeetingID,
	})
	if err != nil {
		// The alert is stored; the user sees it on the next List.
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldUserID, alert.UserID).Msg("failed to push alert")
	}
	return nil
}

// CheckInactivity walks live meetings and alerts each host once about every
// signed-in participant whose last heartbeat is older than the threshold.
func (s *alertServiceImpl) CheckInactivity(ctx context.Context) (int, error) {
	l := log.Ctx(ctx)

	meetings, err := s.meetings.ListLiveMeetings(ctx)
	if err != nil {
		return 0, err
	}

	raised := 0
	now := s.now()
	for _, meeting := range meetings {
		participants, err := s.meetings.ListActiveParticipants(ctx, meeting.ID)
		if err != nil {
			l.Error().Err(err).Str(log.FieldMeetingID, meeting.MeetingID).Msg("failed to list participants")
			continue
		}

		for _, p := range participants {
			if p.UserID == nil || *p.UserID == meeting.HostID {
				continue
			}
			userID := *p.UserID

			lastSeen, ok, err := s.activity.LastSeen(ctx, meeting.MeetingID, userID)
			if err != nil {
				l.Warn().Err(err).Str(log.FieldMeetingID, meeting.MeetingID).Msg("failed to read activity")
				continue
			}
			if !ok || now.Sub(lastSeen) < s.config.InactivityThreshold {
				continue
			}

			first, err := s.activity.MarkAlerted(ctx, meeting.MeetingID, userID, s.config.ActivityTTL)
			if err != nil || !first {
				continue
			}

			meetingID := meeting.MeetingID
			alert := &domain.Alert{
				UserID:    meeting.HostID,
				MeetingID: &meetingID,
				Type:      domain.AlertTypeInactivity,
				Message: fmt.Sprintf("%s has been inactive for %d+ minutes",
					p.DisplayName, int(s.config.InactivityThreshold.Minutes())),
			}
			if err := s.Raise(ctx, alert); err != nil {
				l.Error().Err(err).Str(log.FieldMeetingID, meetingID).Msg("failed to raise inactivity alert")
				continue
			}
			raised++
		}
	}
	return raised, nil
}
