package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/storage"
)

// WhiteboardExporter writes a meeting's final whiteboard to object storage
// when the meeting ends.
type WhiteboardExporter struct {
	snapshots service.SnapshotService
	store     storage.Storage
	prefix    string
}

// NewWhiteboardExporter creates a WhiteboardExporter.
func NewWhiteboardExporter(snapshots service.SnapshotService, store storage.Storage, prefix string) *WhiteboardExporter {
	if prefix == "" {
		prefix = "whiteboards"
	}
	return &WhiteboardExporter{snapshots: snapshots, store: store, prefix: prefix}
}

// Key returns the storage key of a meeting's exported whiteboard.
func (e *WhiteboardExporter) Key(meetingID string) string {
	return path.Join(e.prefix, meetingID, "final.json")
}

// Export writes the latest snapshot of meetingID. It returns the key
// written, or "" when the meeting has no whiteboard.
func (e *WhiteboardExporter) Export(ctx context.Context, meetingID string) (string, error) {
	data, ok, err := e.snapshots.Latest(ctx, meetingID)
	if err != nil {
		return "", fmt.Errorf("failed to load whiteboard: %w", err)
	}
	if !ok {
		return "", nil
	}

	key := e.Key(meetingID)
	if err := e.store.Write(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", fmt.Errorf("failed to write whiteboard: %w", err)
	}
	return key, nil
}

// URL returns a link to the exported whiteboard of meetingID. It fails with
// domain.ErrNotFound until the meeting has been exported.
func (e *WhiteboardExporter) URL(ctx context.Context, meetingID string, expires time.Duration) (string, error) {
	key := e.Key(meetingID)
	ok, err := e.store.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check export: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: whiteboard not exported", domain.ErrNotFound)
	}
	return e.store.GetURL(ctx, key, expires)
}

// Open returns the exported whiteboard of meetingID. The caller closes it.
func (e *WhiteboardExporter) Open(ctx context.Context, meetingID string) (io.ReadCloser, error) {
	rc, err := e.store.Read(ctx, e.Key(meetingID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: whiteboard not exported", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return rc, nil
}

// OnMeetingEvent implements service.MeetingHook.
func (e *WhiteboardExporter) OnMeetingEvent(ctx context.Context, event service.MeetingEvent, meeting *domain.Meeting) {
	if event != service.MeetingEnded {
		return
	}

	l := log.Ctx(ctx)
	key, err := e.Export(ctx, meeting.MeetingID)
	if err != nil {
		l.Error().Err(err).Str(log.FieldMeetingID, meeting.MeetingID).Msg("whiteboard export failed")
		return
	}
	if key != "" {
		l.Info().Str(log.FieldMeetingID, meeting.MeetingID).Str("key", key).Msg("whiteboard exported")
	}
}
