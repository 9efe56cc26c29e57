package registry

import (
	"context"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
)

// Entry is one registered session together with the identity key used to
// tell whether a participant still has a live connection. IdentityKey is
// never sent to clients.
type Entry struct {
	Member      domain.Member `json:"member"`
	IdentityKey string        `json:"identity_key"`
}

// NewEntry builds the registry entry for a session.
func NewEntry(s *domain.Session) Entry {
	return Entry{Member: s.Member(), IdentityKey: s.Identity.Key()}
}

// Registry tracks which sessions are members of which room. Register and
// Deregister return the member set as it stands right after the change.
type Registry interface {
	Register(ctx context.Context, room domain.RoomKey, entry Entry) ([]Entry, error)
	Deregister(ctx context.Context, room domain.RoomKey, sessionID string) ([]Entry, error)
	Members(ctx context.Context, room domain.RoomKey) ([]Entry, error)
	Close() error
}

// Members strips entries down to their client-facing view.
func Members(entries []Entry) []domain.Member {
	members := make([]domain.Member, len(entries))
	for i, e := range entries {
		members[i] = e.Member
	}
	return members
}

// HasIdentity reports whether any entry belongs to identityKey.
func HasIdentity(entries []Entry, identityKey string) bool {
	for _, e := range entries {
		if e.IdentityKey == identityKey {
			return true
		}
	}
	return false
}
