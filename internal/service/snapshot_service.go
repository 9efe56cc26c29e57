package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/cache"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/idgen"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/repository"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// MeetingLookup reports whether a meeting exists.
type MeetingLookup interface {
	MeetingIDExists(ctx context.Context, meetingID string) (bool, error)
}

// snapshotServiceImpl implements SnapshotService interface.
type snapshotServiceImpl struct {
	repo     repository.SnapshotRepository
	meetings MeetingLookup
	cache    cache.SnapshotCache
	cacheTTL time.Duration
	ids      idgen.Generator
	loads    singleflight.Group
}

// NewSnapshotService creates a new snapshot service.
func NewSnapshotService(repo repository.SnapshotRepository, meetings MeetingLookup, c cache.SnapshotCache, cacheTTL time.Duration) SnapshotService {
	return &snapshotServiceImpl{
		repo:     repo,
		meetings: meetings,
		cache:    c,
		cacheTTL: cacheTTL,
		ids:      idgen.NewULIDGenerator(),
	}
}

// Save appends a snapshot and makes it the cached latest.
func (s *snapshotServiceImpl) Save(ctx context.Context, meetingID string, data json.RawMessage, authorID *string) (*domain.Snapshot, error) {
	l := log.Ctx(ctx)

	exists, err := s.meetings.MeetingIDExists(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !exists {
		l.Warn().Str(log.FieldMeetingID, meetingID).Msg("skipping snapshot for unknown meeting")
		return nil, nil
	}

	id, err := s.ids.Generate()
	if err != nil {
		return nil, err
	}
	snapshot := &domain.Snapshot{
		ID:        id,
		MeetingID: meetingID,
		Data:      data,
		AuthorID:  authorID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, snapshot); err != nil {
		return nil, err
	}

	s.remember(ctx, snapshot.MeetingID, snapshot.ID, snapshot.Data)
	return snapshot, nil
}

// Latest returns the newest snapshot payload. Concurrent misses for the
// same meeting share one database read.
func (s *snapshotServiceImpl) Latest(ctx context.Context, meetingID string) (json.RawMessage, bool, error) {
	l := log.Ctx(ctx)
	key := s.cache.BuildKeyByMeeting(meetingID)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		return cached.Data, true, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Str(log.FieldMeetingID, meetingID).Msg("snapshot cache read failed")
	}

	v, err, _ := s.loads.Do(meetingID, func() (interface{}, error) {
		snapshot, err := s.repo.Latest(ctx, meetingID)
		if err != nil {
			if errors.Is(err, repository.ErrSnapshotNotFound) {
				return nil, nil
			}
			return nil, err
		}
		s.remember(ctx, meetingID, snapshot.ID, snapshot.Data)
		return snapshot, nil
	})
	if err != nil {
		return nil, false, err
	}

	snapshot, _ := v.(*domain.Snapshot)
	if snapshot == nil {
		return nil, false, nil
	}
	return snapshot.Data, true, nil
}

func (s *snapshotServiceImpl) remember(ctx context.Context, meetingID, id string, data json.RawMessage) {
	result := &cache.SnapshotCacheResult{ID: id, Data: data}
	if err := s.cache.SetIfNewer(ctx, s.cache.BuildKeyByMeeting(meetingID), result, s.cacheTTL); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldMeetingID, meetingID).Msg("snapshot cache write failed")
	}
}
