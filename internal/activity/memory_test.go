package activity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/activity"
)

func TestMemoryStore_LastSeen(t *testing.T) {
	ctx := context.Background()
	s := activity.NewMemoryStore()

	_, ok, err := s.LastSeen(ctx, "m1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Touch(ctx, "m1", "u1", at))

	got, ok, err := s.LastSeen(ctx, "m1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, at, got)

	_, ok, err = s.LastSeen(ctx, "m2", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_MarkAlerted(t *testing.T) {
	ctx := context.Background()
	s := activity.NewMemoryStore()

	first, err := s.MarkAlerted(ctx, "m1", "u1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.MarkAlerted(ctx, "m1", "u1", time.Hour)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, s.Touch(ctx, "m1", "u1", time.Now()))
	rearmed, err := s.MarkAlerted(ctx, "m1", "u1", time.Hour)
	require.NoError(t, err)
	assert.True(t, rearmed)

	short, err := s.MarkAlerted(ctx, "m1", "u2", time.Millisecond)
	require.NoError(t, err)
	assert.True(t, short)
	time.Sleep(5 * time.Millisecond)
	expired, err := s.MarkAlerted(ctx, "m1", "u2", time.Millisecond)
	require.NoError(t, err)
	assert.True(t, expired)
}
