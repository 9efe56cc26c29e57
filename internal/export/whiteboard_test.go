package export_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/export"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/storage"
)

type stubSnapshots struct {
	latest map[string]json.RawMessage
	err    error
}

func (s *stubSnapshots) Save(ctx context.Context, meetingID string, data json.RawMessage, authorID *string) (*domain.Snapshot, error) {
	return nil, errors.New("not implemented")
}

func (s *stubSnapshots) Latest(ctx context.Context, meetingID string) (json.RawMessage, bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	data, ok := s.latest[meetingID]
	return data, ok, nil
}

func newStore(t *testing.T) *storage.LocalStorage {
	t.Helper()
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	return store
}

func TestWhiteboardExporter_Export(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := newStore(t)
	snapshots := &stubSnapshots{latest: map[string]json.RawMessage{
		"123-456-7890": json.RawMessage(`{"strokes":[1,2]}`),
	}}
	e := export.NewWhiteboardExporter(snapshots, store, "")

	// Act
	key, err := e.Export(ctx, "123-456-7890")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "whiteboards/123-456-7890/final.json", key)

	r, err := store.Read(ctx, key)
	require.NoError(t, err)
	defer r.Close()
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"strokes":[1,2]}`, string(body))
}

func TestWhiteboardExporter_NothingToExport(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	e := export.NewWhiteboardExporter(&stubSnapshots{}, store, "boards")

	key, err := e.Export(ctx, "000-000-0000")

	require.NoError(t, err)
	assert.Empty(t, key)
	ok, err := store.Exists(ctx, e.Key("000-000-0000"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWhiteboardExporter_LoadFailure(t *testing.T) {
	e := export.NewWhiteboardExporter(&stubSnapshots{err: errors.New("db down")}, newStore(t), "")

	_, err := e.Export(context.Background(), "123-456-7890")

	assert.ErrorContains(t, err, "failed to load whiteboard")
}

func TestWhiteboardExporter_OnlyOnMeetingEnded(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	snapshots := &stubSnapshots{latest: map[string]json.RawMessage{"m1": json.RawMessage(`{}`)}}
	e := export.NewWhiteboardExporter(snapshots, store, "")
	meeting := &domain.Meeting{MeetingID: "m1"}

	e.OnMeetingEvent(ctx, service.MeetingStarted, meeting)
	ok, err := store.Exists(ctx, e.Key("m1"))
	require.NoError(t, err)
	assert.False(t, ok)

	e.OnMeetingEvent(ctx, service.MeetingEnded, meeting)
	ok, err = store.Exists(ctx, e.Key("m1"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWhiteboardExporter_URLAndOpen(t *testing.T) {
	// Arrange
	ctx := context.Background()
	snapshots := &stubSnapshots{latest: map[string]json.RawMessage{"m1": json.RawMessage(`{"v":1}`)}}
	e := export.NewWhiteboardExporter(snapshots, newStore(t), "")

	_, err := e.URL(ctx, "m1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.Open(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Act
	_, err = e.Export(ctx, "m1")
	require.NoError(t, err)

	// Assert
	url, err := e.URL(ctx, "m1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "/whiteboards/m1/final.json", url)

	rc, err := e.Open(ctx, "m1")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(body))
}
