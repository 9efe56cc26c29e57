package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// GormMeetingRepository implements MeetingRepository using GORM.
type GormMeetingRepository struct {
	db *gorm.DB
}

// NewGormMeetingRepository creates a new GORM-based meeting repository.
func NewGormMeetingRepository(db *gorm.DB) *GormMeetingRepository {
	return &GormMeetingRepository{db: db}
}

// Transaction runs fn inside a database transaction.
func (r *GormMeetingRepository) Transaction(ctx context.Context, fn func(repo MeetingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormMeetingRepository{db: tx})
	})
}

// CreateMeeting creates a new meeting.
func (r *GormMeetingRepository) CreateMeeting(ctx context.Context, meeting *domain.Meeting) error {
	l := log.Ctx(ctx)

	model := domain.MeetingToModel(meeting)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldMeetingID, meeting.MeetingID).Msg("failed to create meeting in db")
		return err
	}

	meeting.ID = model.ID
	meeting.CreatedAt = model.CreatedAt
	meeting.UpdatedAt = model.UpdatedAt
	l.Debug().Str(log.FieldMeetingID, meeting.MeetingID).Msg("meeting created in db")
	return nil
}

// GetMeeting retrieves a meeting by external id.
func (r *GormMeetingRepository) GetMeeting(ctx context.Context, meetingID string, forUpdate bool) (*domain.Meeting, error) {
	l := log.Ctx(ctx)

	q := r.db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model domain.MeetingModel
	if err := q.First(&model, "meeting_id = ?", meetingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		l.Error().Err(err).Str(log.FieldMeetingID, meetingID).Msg("failed to get meeting")
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateMeetingStatus writes the lifecycle fields of a meeting.
func (r *GormMeetingRepository) UpdateMeetingStatus(ctx context.Context, meeting *domain.Meeting) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.MeetingModel{}).
		Where("id = ?", meeting.ID).
		Updates(map[string]interface{}{
			"status":     string(meeting.Status),
			"started_at": meeting.StartedAt,
			"ended_at":   meeting.EndedAt,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldMeetingID, meeting.MeetingID).Msg("failed to update meeting status")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMeetingNotFound
	}
	l.Debug().Str(log.FieldMeetingID, meeting.MeetingID).Str("status", string(meeting.Status)).Msg("meeting status updated")
	return nil
}

// MeetingIDExists reports whether an external id is taken.
func (r *GormMeetingRepository) MeetingIDExists(ctx context.Context, meetingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.MeetingModel{}).
		Where("meeting_id = ?", meetingID).
		Count(&count).Error
	return count > 0, err
}

// ListLiveMeetings returns meetings that have not ended.
func (r *GormMeetingRepository) ListLiveMeetings(ctx context.Context) ([]*domain.Meeting, error) {
	l := log.Ctx(ctx)

	var models []domain.MeetingModel
	if err := r.db.WithContext(ctx).
		Where("status <> ?", string(domain.MeetingStatusEnded)).
		Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list live meetings")
		return nil, err
	}

	meetings := make([]*domain.Meeting, len(models))
	for i := range models {
		meetings[i] = models[i].ToDomain()
	}
	return meetings, nil
}

// CreateParticipant inserts a participant row.
func (r *GormMeetingRepository) CreateParticipant(ctx context.Context, p *domain.Participant) error {
	l := log.Ctx(ctx)

	model := domain.ParticipantToModel(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Uint("meeting_pk", p.MeetingID).Msg("failed to create participant")
		return err
	}
	p.ID = model.ID
	return nil
}

// UpdateParticipant saves every mutable column of a participant row.
func (r *GormMeetingRepository) UpdateParticipant(ctx context.Context, p *domain.Participant) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"display_name":      p.DisplayName,
			"role":              string(p.Role),
			"is_muted":          p.Media.Muted,
			"is_video_on":       p.Media.VideoOn,
			"is_hand_raised":    p.Media.HandRaised,
			"is_sharing_screen": p.Media.SharingScreen,
			"joined_at":         p.JoinedAt,
			"left_at":           p.LeftAt,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Uint("participant_id", p.ID).Msg("failed to update participant")
		return result.Error
	}
	return nil
}

// FindParticipant returns the identity's row in a meeting, active or not.
func (r *GormMeetingRepository) FindParticipant(ctx context.Context, meetingPK uint, identity domain.Identity) (*domain.Participant, error) {
	l := log.Ctx(ctx)

	q := r.db.WithContext(ctx).Where("meeting_id = ?", meetingPK)
	switch {
	case identity.Authenticated():
		q = q.Where("user_id = ?", identity.UserID)
	case identity.GuestToken != "":
		q = q.Where("user_id IS NULL AND guest_token = ?", identity.GuestToken)
	default:
		return nil, ErrParticipantNotFound
	}

	var model domain.ParticipantModel
	if err := q.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		l.Error().Err(err).Uint("meeting_pk", meetingPK).Msg("failed to find participant")
		return nil, err
	}
	return model.ToDomain(), nil
}

// CountActiveParticipants counts rows with no left_at.
func (r *GormMeetingRepository) CountActiveParticipants(ctx context.Context, meetingPK uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("meeting_id = ? AND left_at IS NULL", meetingPK).
		Count(&count).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint("meeting_pk", meetingPK).Msg("failed to count active participants")
	}
	return int(count), err
}

// ListActiveParticipants returns rows with no left_at, oldest first.
func (r *GormMeetingRepository) ListActiveParticipants(ctx context.Context, meetingPK uint) ([]*domain.Participant, error) {
	l := log.Ctx(ctx)

	var models []domain.ParticipantModel
	if err := r.db.WithContext(ctx).
		Where("meeting_id = ? AND left_at IS NULL", meetingPK).
		Order("joined_at ASC, id ASC").
		Find(&models).Error; err != nil {
		l.Error().Err(err).Uint("meeting_pk", meetingPK).Msg("failed to list active participants")
		return nil, err
	}

	participants := make([]*domain.Participant, len(models))
	for i := range models {
		participants[i] = models[i].ToDomain()
	}
	return participants, nil
}

// CloseActiveParticipants stamps left_at on every open row.
func (r *GormMeetingRepository) CloseActiveParticipants(ctx context.Context, meetingPK uint, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.ParticipantModel{}).
		Where("meeting_id = ? AND left_at IS NULL", meetingPK).
		Updates(map[string]interface{}{
			"left_at":           at,
			"is_sharing_screen": false,
			"is_hand_raised":    false,
		})
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Uint("meeting_pk", meetingPK).Msg("failed to close participants")
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
