package activity

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-instance Store.
type MemoryStore struct {
	lastSeen map[string]time.Time
	alerted  map[string]time.Time // key -> expiry
	mu       sync.Mutex
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lastSeen: make(map[string]time.Time),
		alerted:  make(map[string]time.Time),
		now:      time.Now,
	}
}

func memoryKey(meetingID, userID string) string {
	return meetingID + ":" + userID
}

func (s *MemoryStore) Touch(ctx context.Context, meetingID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey(meetingID, userID)
	s.lastSeen[key] = at
	delete(s.alerted, key)
	return nil
}

func (s *MemoryStore) LastSeen(ctx context.Context, meetingID, userID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.lastSeen[memoryKey(meetingID, userID)]
	return at, ok, nil
}

func (s *MemoryStore) MarkAlerted(ctx context.Context, meetingID, userID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey(meetingID, userID)
	if exp, ok := s.alerted[key]; ok && s.now().Before(exp) {
		return false, nil
	}
	s.alerted[key] = s.now().Add(ttl)
	return true, nil
}
