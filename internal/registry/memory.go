package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
)

// MemoryRegistry keeps room membership in process. It is only correct for a
// single instance.
type MemoryRegistry struct {
	rooms map[string]map[string]Entry // room key -> session id -> entry
	mu    sync.Mutex
}

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{rooms: make(map[string]map[string]Entry)}
}

func (r *MemoryRegistry) Register(ctx context.Context, room domain.RoomKey, entry Entry) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := room.String()
	if _, ok := r.rooms[key]; !ok {
		r.rooms[key] = make(map[string]Entry)
	}
	r.rooms[key][entry.Member.SessionID] = entry
	return r.snapshot(key), nil
}

func (r *MemoryRegistry) Deregister(ctx context.Context, room domain.RoomKey, sessionID string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := room.String()
	if entries, ok := r.rooms[key]; ok {
		delete(entries, sessionID)
		if len(entries) == 0 {
			delete(r.rooms, key)
		}
	}
	return r.snapshot(key), nil
}

func (r *MemoryRegistry) Members(ctx context.Context, room domain.RoomKey) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(room.String()), nil
}

// RoomCount returns the number of non-empty rooms.
func (r *MemoryRegistry) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *MemoryRegistry) Close() error {
	return nil
}

// snapshot must be called with mu held.
func (r *MemoryRegistry) snapshot(key string) []Entry {
	entries := make([]Entry, 0, len(r.rooms[key]))
	for _, e := range r.rooms[key] {
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Member, entries[j].Member
		if !a.ConnectedAt.Equal(b.ConnectedAt) {
			return a.ConnectedAt.Before(b.ConnectedAt)
		}
		return a.SessionID < b.SessionID
	})
}
