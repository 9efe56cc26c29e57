package service

import (
	"context"
	"strings"
	"time"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/idgen"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/repository"
)

const (
	defaultHistoryPageSize = 50
	maxHistoryPageSize     = 100
)

// chatServiceImpl implements ChatService interface.
type chatServiceImpl struct {
	repo      repository.ChatRepository
	publisher Publisher
	ids       idgen.Generator
}

// NewChatService creates a new chat service.
func NewChatService(repo repository.ChatRepository, publisher Publisher) ChatService {
	return &chatServiceImpl{
		repo:      repo,
		publisher: publisher,
		ids:       idgen.NewULIDGenerator(),
	}
}

// Send persists a chat line and delivers it to everyone in the room,
// sender included.
func (s *chatServiceImpl) Send(ctx context.Context, roomID string, identity domain.Identity, text string) (*domain.ChatMessage, error) {
	if !identity.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	id, err := s.ids.Generate()
	if err != nil {
		return nil, err
	}
	msg := &domain.ChatMessage{
		ID:        id,
		RoomID:    roomID,
		UserID:    identity.UserID,
		Username:  identity.Name(),
		Message:   strings.TrimSpace(text),
		Timestamp: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	err = s.publisher.Publish(ctx, domain.ChatRoom(roomID), &domain.ChatMessageOut{
		Type:      domain.MsgTypeChat,
		ID:        msg.ID,
		Message:   msg.Message,
		User:      msg.Username,
		Timestamp: msg.Timestamp,
	}, "")
	if err != nil {
		return msg, err
	}
	return msg, nil
}

// History returns a page of messages, newest first.
func (s *chatServiceImpl) History(ctx context.Context, roomID string, req *domain.ListMessagesRequest) (*domain.ListMessagesResponse, error) {
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultHistoryPageSize
	}
	if pageSize > maxHistoryPageSize {
		pageSize = maxHistoryPageSize
	}

	messages, err := s.repo.ListByRoom(ctx, roomID, req.Before, pageSize)
	if err != nil {
		return nil, err
	}

	resp := &domain.ListMessagesResponse{Messages: messages}
	if len(messages) == pageSize {
		resp.NextBefore = messages[len(messages)-1].ID
	}
	return resp, nil
}
