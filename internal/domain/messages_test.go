package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.RoomKind
		raw     string
		want    domain.Inbound
		wantErr error
	}{
		{
			name: "untyped message is chat",
			kind: domain.RoomKindMeeting,
			raw:  `{"message":"  hello  "}`,
			want: domain.ChatIn{Message: "hello"},
		},
		{
			name: "chat with data string",
			kind: domain.RoomKindChat,
			raw:  `{"type":"chat_message","data":"hi"}`,
			want: domain.ChatIn{Message: "hi"},
		},
		{
			name:    "blank chat",
			kind:    domain.RoomKindChat,
			raw:     `{"message":"   "}`,
			wantErr: domain.ErrMalformedFrame,
		},
		{
			name: "ping anywhere",
			kind: domain.RoomKindWhiteboard,
			raw:  `{"type":"ping"}`,
			want: domain.PingIn{},
		},
		{
			name: "reaction",
			kind: domain.RoomKindMeeting,
			raw:  `{"type":"reaction","data":{"emoji":"👍"}}`,
			want: domain.ReactionIn{Emoji: "👍"},
		},
		{
			name:    "reaction without emoji",
			kind:    domain.RoomKindMeeting,
			raw:     `{"type":"reaction","data":{}}`,
			wantErr: domain.ErrMalformedFrame,
		},
		{
			name:    "unknown signal kind",
			kind:    domain.RoomKindMeeting,
			raw:     `{"type":"signal","data":{"signal_type":"bye"}}`,
			wantErr: domain.ErrMalformedFrame,
		},
		{
			name:    "empty media state",
			kind:    domain.RoomKindMeeting,
			raw:     `{"type":"media_state","data":{}}`,
			wantErr: domain.ErrMalformedFrame,
		},
		{
			name:    "chat not allowed on whiteboard",
			kind:    domain.RoomKindWhiteboard,
			raw:     `{"message":"hi"}`,
			wantErr: domain.ErrUnknownType,
		},
		{
			name:    "update requires data",
			kind:    domain.RoomKindWhiteboard,
			raw:     `{"type":"update","data":null}`,
			wantErr: domain.ErrMalformedFrame,
		},
		{
			name:    "signal not allowed in chat",
			kind:    domain.RoomKindChat,
			raw:     `{"type":"signal","data":{"signal_type":"offer"}}`,
			wantErr: domain.ErrUnknownType,
		},
		{
			name:    "not json",
			kind:    domain.RoomKindMeeting,
			raw:     `hello`,
			wantErr: domain.ErrMalformedFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.DecodeInbound(tt.kind, []byte(tt.raw))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeInbound_Signal(t *testing.T) {
	raw := `{"type":"signal","data":{"signal_type":"offer","to":"s2","payload":{"sdp":"x"}}}`

	got, err := domain.DecodeInbound(domain.RoomKindMeeting, []byte(raw))

	require.NoError(t, err)
	sig, ok := got.(domain.SignalIn)
	require.True(t, ok)
	assert.Equal(t, domain.SignalOffer, sig.SignalType)
	assert.Equal(t, "s2", sig.To)
	assert.JSONEq(t, `{"sdp":"x"}`, string(sig.Payload))
}

func TestDecodeInbound_WhiteboardKeepsDataOpaque(t *testing.T) {
	raw := `{"type":"update","data":{"shapes":[{"k":"line","p":[1,2]}]}}`

	got, err := domain.DecodeInbound(domain.RoomKindWhiteboard, []byte(raw))

	require.NoError(t, err)
	upd, ok := got.(domain.WhiteboardUpdateIn)
	require.True(t, ok)
	assert.JSONEq(t, `{"shapes":[{"k":"line","p":[1,2]}]}`, string(upd.Data))
}

func TestDecodeInbound_ChatTooLong(t *testing.T) {
	raw := `{"message":"` + strings.Repeat("a", domain.MaxChatLength+1) + `"}`

	_, err := domain.DecodeInbound(domain.RoomKindChat, []byte(raw))

	assert.ErrorIs(t, err, domain.ErrMalformedFrame)
}

func TestParseRoomKey(t *testing.T) {
	key, err := domain.ParseRoomKey(domain.MeetingRoom("abc").String())
	require.NoError(t, err)
	assert.Equal(t, domain.MeetingRoom("abc"), key)

	_, err = domain.ParseRoomKey("lobby:abc")
	assert.ErrorIs(t, err, domain.ErrInvalidRoom)

	_, err = domain.ParseRoomKey("chat:")
	assert.ErrorIs(t, err, domain.ErrInvalidRoom)
}

func TestSession_MarkDisconnectingOnce(t *testing.T) {
	s := domain.NewSession("s1", domain.ChatRoom("r"), domain.Identity{UserID: "u1", Username: "alice"})

	assert.True(t, s.IsConnected())
	assert.True(t, s.MarkDisconnecting())
	assert.False(t, s.MarkDisconnecting())
	assert.False(t, s.IsConnected())

	m := s.Member()
	assert.Equal(t, "s1", m.SessionID)
	assert.Equal(t, "alice", m.Name)
	assert.False(t, m.Guest)
}
