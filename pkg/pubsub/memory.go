package pubsub

import (
	"context"
	"errors"
	"path"
	"sync"
)

// ErrClosed is returned by operations on a closed PubSub.
var ErrClosed = errors.New("pubsub closed")

const memoryBufferSize = 1024

type memorySubscription struct {
	key     string
	pattern bool
	ch      chan *Event
	ctx     context.Context
	cancel  context.CancelFunc
}

func (s *memorySubscription) matches(channel string) bool {
	if !s.pattern {
		return s.key == channel
	}
	ok, err := path.Match(s.key, channel)
	return err == nil && ok
}

// MemoryPubSub is an in-process PubSub for single-instance deployments and
// tests. Publish blocks until every matching subscriber has buffered the
// event, so events are never dropped and stay in publish order.
type MemoryPubSub struct {
	subscriptions map[string]*memorySubscription
	mu            sync.RWMutex
	closed        bool
}

// NewMemoryPubSub creates an empty in-process PubSub.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subscriptions: make(map[string]*memorySubscription)}
}

// Publish delivers event to every subscription matching channel.
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	for _, sub := range m.subscriptions {
		if !sub.matches(channel) {
			continue
		}
		select {
		case sub.ch <- event:
		case <-sub.ctx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe subscribes to a specific channel.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return m.subscribe(ctx, channel, false)
}

// SubscribePattern subscribes to channels matching a glob pattern.
func (m *MemoryPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	return m.subscribe(ctx, pattern, true)
}

func (m *MemoryPubSub) subscribe(ctx context.Context, key string, pattern bool) (<-chan *Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if existing, ok := m.subscriptions[key]; ok {
		existing.cancel()
		m.drop(existing)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscription{
		key:     key,
		pattern: pattern,
		ch:      make(chan *Event, memoryBufferSize),
		ctx:     subCtx,
		cancel:  cancel,
	}
	m.subscriptions[key] = sub

	go func() {
		<-subCtx.Done()
		m.mu.Lock()
		m.drop(sub)
		m.mu.Unlock()
	}()

	return sub.ch, nil
}

// drop closes sub's channel once. Callers hold m.mu.
func (m *MemoryPubSub) drop(sub *memorySubscription) {
	if current, ok := m.subscriptions[sub.key]; ok && current == sub {
		delete(m.subscriptions, sub.key)
	}
	if sub.ch != nil {
		close(sub.ch)
		sub.ch = nil
	}
}

// Unsubscribe drops the subscription for channel or pattern.
func (m *MemoryPubSub) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[channel]
	m.mu.RUnlock()
	if ok {
		sub.cancel()
	}
	return nil
}

// Close drops every subscription.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for _, sub := range m.subscriptions {
		sub.cancel()
	}
	return nil
}
