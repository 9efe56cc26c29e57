package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/repository"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
)

func TestChatService_SendPersistsAndPublishes(t *testing.T) {
	// Arrange
	ctx := context.Background()
	publisher := &fakePublisher{}
	svc := service.NewChatService(repository.NewGormChatRepository(newTestDB(t)), publisher)

	// Act
	msg, err := svc.Send(ctx, "general", alice, "  hello  ")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Message)
	assert.Equal(t, "alice", msg.Username)

	out, ok := publisher.last(domain.ChatRoom("general")).(*domain.ChatMessageOut)
	require.True(t, ok)
	assert.Equal(t, msg.ID, out.ID)
	assert.Equal(t, "hello", out.Message)

	history, err := svc.History(ctx, "general", &domain.ListMessagesRequest{})
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, msg.ID, history.Messages[0].ID)
	assert.Empty(t, history.NextBefore)
}

func TestChatService_SendRequiresUser(t *testing.T) {
	svc := service.NewChatService(repository.NewGormChatRepository(newTestDB(t)), &fakePublisher{})

	_, err := svc.Send(context.Background(), "general", domain.Identity{DisplayName: "guest"}, "hi")

	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestChatService_HistoryPages(t *testing.T) {
	ctx := context.Background()
	svc := service.NewChatService(repository.NewGormChatRepository(newTestDB(t)), &fakePublisher{})
	for i := 0; i < 5; i++ {
		_, err := svc.Send(ctx, "general", alice, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}
	_, err := svc.Send(ctx, "other", bob, "elsewhere")
	require.NoError(t, err)

	page, err := svc.History(ctx, "general", &domain.ListMessagesRequest{PageSize: 3})
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, "m4", page.Messages[0].Message)
	require.NotEmpty(t, page.NextBefore)

	rest, err := svc.History(ctx, "general", &domain.ListMessagesRequest{PageSize: 3, Before: page.NextBefore})
	require.NoError(t, err)
	require.Len(t, rest.Messages, 2)
	assert.Equal(t, "m1", rest.Messages[0].Message)
	assert.Equal(t, "m0", rest.Messages[1].Message)
	assert.Empty(t, rest.NextBefore)
}
