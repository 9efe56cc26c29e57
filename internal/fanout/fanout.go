package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/pubsub"
)

// Deliverer hands raw frames to the connections of one instance.
type Deliverer interface {
	Deliver(room string, message []byte, exclude string)
}

// Fanout publishes room events on the broker and, when it has a Deliverer,
// relays every room event it receives back to local connections.
type Fanout struct {
	broker pubsub.PubSub
	local  Deliverer
	origin string
	done   chan struct{}
}

// New creates a Fanout. local may be nil for publish-only processes such as
// the background worker.
func New(broker pubsub.PubSub, local Deliverer, origin string) *Fanout {
	return &Fanout{
		broker: broker,
		local:  local,
		origin: origin,
		done:   make(chan struct{}),
	}
}

// Publish sends msg to every session in room on every instance, except the
// session exclude when it is not empty.
func (f *Fanout) Publish(ctx context.Context, room domain.RoomKey, msg domain.Outbound, exclude string) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", msg.MessageType(), err)
	}

	event := &pubsub.Event{
		Type:      msg.MessageType(),
		RoomID:    room.String(),
		Exclude:   exclude,
		Origin:    f.origin,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	if err := f.broker.Publish(ctx, pubsub.RoomChannel(room.String()), event); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.MessageType(), err)
	}

	l := pkglog.Ctx(ctx)
	l.Debug().Str(pkglog.FieldRoom, event.RoomID).Str(pkglog.FieldEvent, event.Type).Msg("event published")
	return nil
}

// Notify publishes msg on a user's personal channel. No live session is not
// an error.
func (f *Fanout) Notify(ctx context.Context, userID string, msg domain.Outbound) error {
	return f.Publish(ctx, domain.UserRoom(userID), msg, "")
}

// Start subscribes to every room and relays broker events to local
// connections until ctx is done. One subscription over all rooms keeps
// per-room order intact. Events published after Start returns are relayed.
func (f *Fanout) Start(ctx context.Context) error {
	if f.local == nil {
		close(f.done)
		return nil
	}

	events, err := f.broker.SubscribePattern(ctx, pubsub.PatternRooms)
	if err != nil {
		close(f.done)
		return fmt.Errorf("failed to subscribe to rooms: %w", err)
	}

	l := pkglog.L()
	l.Info().Str("origin", f.origin).Msg("fan-out started")

	go f.relay(ctx, events)
	return nil
}

func (f *Fanout) relay(ctx context.Context, events <-chan *pubsub.Event) {
	defer close(f.done)
	l := pkglog.L()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				if ctx.Err() == nil {
					l.Error().Msg("room subscription closed")
				}
				return
			}
			if event.RoomID == "" {
				l.Warn().Str(pkglog.FieldEvent, event.Type).Msg("dropping event without room")
				continue
			}
			f.local.Deliver(event.RoomID, event.Payload, event.Exclude)
		}
	}
}

// Done is closed when relaying stops.
func (f *Fanout) Done() <-chan struct{} {
	return f.done
}
