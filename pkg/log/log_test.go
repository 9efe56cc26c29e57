package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

func TestNewWithWriter_LevelAndService(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(log.Config{Level: "warn", ServiceName: "rooms"}, &buf)

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "rooms", entry[log.FieldService])
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.NewWithWriter(log.Config{}, &buf))

	ctx = log.WithFields(ctx, log.FieldMeetingID, "123-456-7890", log.FieldSessionID)
	l := log.Ctx(ctx)
	l.Info().Msg("joined")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "123-456-7890", entry[log.FieldMeetingID])
	assert.NotContains(t, entry, log.FieldSessionID)
}
