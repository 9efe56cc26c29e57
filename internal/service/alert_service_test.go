package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/activity"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/repository"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
)

type alertFixture struct {
	*meetingFixture
	store  *activity.MemoryStore
	alerts service.AlertService
}

func newAlertFixture(t *testing.T) *alertFixture {
	t.Helper()
	mf := newMeetingFixture(t, config.MeetingConfig{})
	store := activity.NewMemoryStore()
	return &alertFixture{
		meetingFixture: mf,
		store:          store,
		alerts: service.NewAlertService(repository.NewGormAlertRepository(mf.db), mf.repo, store, mf.publisher,
			config.AlertsConfig{InactivityThreshold: 3 * time.Minute, ActivityTTL: time.Hour}),
	}
}

func TestAlertService_CheckInactivity(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newAlertFixture(t)
	resp := f.create(t, &domain.CreateMeetingRequest{})
	for _, who := range []domain.Identity{alice, bob, carol} {
		_, err := f.svc.Join(ctx, resp.MeetingID, who, resp.Password)
		require.NoError(t, err)
	}
	stale := time.Now().UTC().Add(-5 * time.Minute)
	require.NoError(t, f.store.Touch(ctx, resp.MeetingID, alice.UserID, stale))
	require.NoError(t, f.store.Touch(ctx, resp.MeetingID, host.UserID, stale))
	require.NoError(t, f.alerts.Heartbeat(ctx, bob.UserID, resp.MeetingID))
	// carol never sent a heartbeat.

	// Act
	raised, err := f.alerts.CheckInactivity(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, raised)

	list, err := f.alerts.List(ctx, host.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.AlertTypeInactivity, list[0].Type)
	assert.Equal(t, "alice has been inactive for 3+ minutes", list[0].Message)
	require.NotNil(t, list[0].MeetingID)
	assert.Equal(t, resp.MeetingID, *list[0].MeetingID)

	pushed, ok := f.publisher.last(domain.UserRoom(host.UserID)).(*domain.AlertMessage)
	require.True(t, ok)
	assert.Equal(t, list[0].ID, pushed.ID)

	// One alert per quiet spell.
	raised, err = f.alerts.CheckInactivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, raised)

	// A fresh heartbeat re-arms the alert.
	require.NoError(t, f.store.Touch(ctx, resp.MeetingID, alice.UserID, stale))
	raised, err = f.alerts.CheckInactivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, raised)
}

func TestAlertService_CheckInactivityCoversWaitingMeetings(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newAlertFixture(t)
	resp := f.create(t, &domain.CreateMeetingRequest{MeetingType: domain.MeetingTypeScheduled})
	_, err := f.svc.Join(ctx, resp.MeetingID, alice, resp.Password)
	require.NoError(t, err)
	require.NoError(t, f.store.Touch(ctx, resp.MeetingID, alice.UserID, time.Now().UTC().Add(-5*time.Minute)))

	ended := f.create(t, &domain.CreateMeetingRequest{})
	_, err = f.svc.Join(ctx, ended.MeetingID, bob, ended.Password)
	require.NoError(t, err)
	require.NoError(t, f.store.Touch(ctx, ended.MeetingID, bob.UserID, time.Now().UTC().Add(-5*time.Minute)))
	require.NoError(t, f.svc.End(ctx, ended.MeetingID, host))

	// Act
	raised, err := f.alerts.CheckInactivity(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, raised)
	list, err := f.alerts.List(ctx, host.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, resp.MeetingID, *list[0].MeetingID)
}

func TestAlertService_HeartbeatUnknownMeeting(t *testing.T) {
	f := newAlertFixture(t)

	err := f.alerts.Heartbeat(context.Background(), alice.UserID, "123-456-7890")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAlertService_MarkRead(t *testing.T) {
	ctx := context.Background()
	f := newAlertFixture(t)
	alert := &domain.Alert{UserID: alice.UserID, Type: domain.AlertTypeMeetingStart, Message: "starting"}
	require.NoError(t, f.alerts.Raise(ctx, alert))
	require.NotZero(t, alert.ID)

	assert.ErrorIs(t, f.alerts.MarkRead(ctx, bob.UserID, alert.ID), service.ErrAlertNotFound)
	require.NoError(t, f.alerts.MarkRead(ctx, alice.UserID, alert.ID))

	list, err := f.alerts.List(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)
}

func TestAlertService_RaiseSurvivesPushFailure(t *testing.T) {
	ctx := context.Background()
	f := newAlertFixture(t)
	f.publisher.err = errors.New("broker down")

	err := f.alerts.Raise(ctx, &domain.Alert{UserID: alice.UserID, Type: domain.AlertTypeRecordingFailed, Message: "x"})
	require.NoError(t, err)

	list, err := f.alerts.List(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
