package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// GormSnapshotRepository implements SnapshotRepository using GORM.
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GORM-based snapshot repository.
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Create appends a snapshot.
func (r *GormSnapshotRepository) Create(ctx context.Context, snapshot *domain.Snapshot) error {
	if err := r.db.WithContext(ctx).Create(domain.SnapshotToModel(snapshot)).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldMeetingID, snapshot.MeetingID).Msg("failed to save snapshot")
		return err
	}
	return nil
}

// Latest returns the newest snapshot of a meeting. ULIDs sort by creation
// time, so the id breaks ties within one timestamp.
func (r *GormSnapshotRepository) Latest(ctx context.Context, meetingID string) (*domain.Snapshot, error) {
	var model domain.WhiteboardSnapshotModel
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("created_at DESC, id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSnapshotNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldMeetingID, meetingID).Msg("failed to load latest snapshot")
		return nil, err
	}
	return model.ToDomain(), nil
}

// GormChatRepository implements ChatRepository using GORM.
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a new GORM-based chat repository.
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

// Create persists a chat message.
func (r *GormChatRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(domain.ChatMessageToModel(msg)).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoom, msg.RoomID).Msg("failed to save chat message")
		return err
	}
	return nil
}

// ListByRoom pages backwards through a room's history by ULID.
func (r *GormChatRepository) ListByRoom(ctx context.Context, roomID, before string, limit int) ([]*domain.ChatMessage, error) {
	q := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if before != "" {
		q = q.Where("id < ?", before)
	}

	var models []domain.ChatMessageModel
	if err := q.Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoom, roomID).Msg("failed to list chat messages")
		return nil, err
	}

	msgs := make([]*domain.ChatMessage, len(models))
	for i := range models {
		msgs[i] = models[i].ToDomain()
	}
	return msgs, nil
}

// GormAlertRepository implements AlertRepository using GORM.
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GORM-based alert repository.
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// Create persists an alert.
func (r *GormAlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	model := domain.AlertToModel(alert)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUserID, alert.UserID).Msg("failed to save alert")
		return err
	}
	alert.ID = model.ID
	alert.CreatedAt = model.CreatedAt
	return nil
}

// ListByUser returns a user's alerts, newest first.
func (r *GormAlertRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Alert, error) {
	var models []domain.AlertModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list alerts")
		return nil, err
	}

	alerts := make([]*domain.Alert, len(models))
	for i := range models {
		alerts[i] = models[i].ToDomain()
	}
	return alerts, nil
}

// MarkRead flags one of the user's alerts as read.
func (r *GormAlertRepository) MarkRead(ctx context.Context, userID string, alertID uint) error {
	var model domain.AlertModel
	if err := r.db.WithContext(ctx).First(&model, "id = ? AND user_id = ?", alertID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAlertNotFound
		}
		return err
	}
	return r.db.WithContext(ctx).Model(&model).Update("is_read", true).Error
}
