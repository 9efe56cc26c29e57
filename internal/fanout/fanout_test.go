package fanout_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/fanout"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/pubsub"
)

type delivery struct {
	room    string
	message []byte
	exclude string
}

type recordingDeliverer struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (d *recordingDeliverer) Deliver(room string, message []byte, exclude string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, delivery{room: room, message: message, exclude: exclude})
}

func (d *recordingDeliverer) snapshot() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.deliveries...)
}

func TestFanout_RelaysAcrossInstances(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker := pubsub.NewMemoryPubSub()
	defer broker.Close()

	local := &recordingDeliverer{}
	receiver := fanout.New(broker, local, "instance-b")
	require.NoError(t, receiver.Start(ctx))
	sender := fanout.New(broker, nil, "instance-a")
	require.NoError(t, sender.Start(ctx))

	room := domain.MeetingRoom("m1")

	// Act
	for _, text := range []string{"first", "second", "third"} {
		msg := domain.ChatMessageOut{Type: domain.MsgTypeChat, Message: text, User: "alice"}
		require.NoError(t, sender.Publish(ctx, room, msg, "s1"))
	}

	// Assert
	require.Eventually(t, func() bool { return len(local.snapshot()) == 3 }, time.Second, 10*time.Millisecond)
	for i, want := range []string{"first", "second", "third"} {
		got := local.snapshot()[i]
		assert.Equal(t, room.String(), got.room)
		assert.Equal(t, "s1", got.exclude)

		var out domain.ChatMessageOut
		require.NoError(t, json.Unmarshal(got.message, &out))
		assert.Equal(t, want, out.Message)
	}
}

func TestFanout_NotifyUsesPersonalRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker := pubsub.NewMemoryPubSub()
	defer broker.Close()

	local := &recordingDeliverer{}
	f := fanout.New(broker, local, "a")
	require.NoError(t, f.Start(ctx))

	require.NoError(t, f.Notify(ctx, "42", domain.AlertMessage{Type: domain.MsgTypeAlert, Message: "hi"}))

	require.Eventually(t, func() bool { return len(local.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.UserRoom("42").String(), local.snapshot()[0].room)
}

func TestFanout_DoneAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	broker := pubsub.NewMemoryPubSub()
	defer broker.Close()

	f := fanout.New(broker, &recordingDeliverer{}, "a")
	require.NoError(t, f.Start(ctx))

	cancel()

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestFanout_PublishOnClosedBroker(t *testing.T) {
	broker := pubsub.NewMemoryPubSub()
	require.NoError(t, broker.Close())
	f := fanout.New(broker, nil, "a")

	err := f.Publish(context.Background(), domain.ChatRoom("r"), domain.PongMessage{Type: domain.MsgTypePong}, "")

	assert.ErrorIs(t, err, pubsub.ErrClosed)
}
