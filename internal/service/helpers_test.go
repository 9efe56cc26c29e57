package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/registry"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/repository"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/database"
)

var (
	host  = domain.Identity{UserID: "1", Username: "teacher"}
	alice = domain.Identity{UserID: "2", Username: "alice"}
	bob   = domain.Identity{UserID: "3", Username: "bob"}
	carol = domain.Identity{UserID: "4", Username: "carol"}
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

type published struct {
	Room    domain.RoomKey
	Msg     domain.Outbound
	Exclude string
}

// fakePublisher records everything published instead of fanning it out.
type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, room domain.RoomKey, msg domain.Outbound, exclude string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{Room: room, Msg: msg, Exclude: exclude})
	return nil
}

func (p *fakePublisher) Notify(ctx context.Context, userID string, msg domain.Outbound) error {
	return p.Publish(ctx, domain.UserRoom(userID), msg, "")
}

func (p *fakePublisher) types(room domain.RoomKey) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		if m.Room == room {
			out = append(out, m.Msg.MessageType())
		}
	}
	return out
}

func (p *fakePublisher) last(room domain.RoomKey) domain.Outbound {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.msgs) - 1; i >= 0; i-- {
		if p.msgs[i].Room == room {
			return p.msgs[i].Msg
		}
	}
	return nil
}

type meetingFixture struct {
	db        *gorm.DB
	repo      *repository.GormMeetingRepository
	publisher *fakePublisher
	registry  *registry.MemoryRegistry
	svc       service.MeetingService
}

func newMeetingFixture(t *testing.T, cfg config.MeetingConfig) *meetingFixture {
	t.Helper()
	if cfg.PasswordCost == 0 {
		cfg.PasswordCost = bcrypt.MinCost
	}

	db := newTestDB(t)
	f := &meetingFixture{
		db:        db,
		repo:      repository.NewGormMeetingRepository(db),
		publisher: &fakePublisher{},
		registry:  registry.NewMemoryRegistry(),
	}
	f.svc = service.NewMeetingService(f.repo, f.publisher, f.registry, cfg)
	t.Cleanup(func() { f.svc.Stop() })
	return f
}

func (f *meetingFixture) create(t *testing.T, req *domain.CreateMeetingRequest) *domain.CreateMeetingResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), host, req)
	require.NoError(t, err)
	return resp
}

func (f *meetingFixture) participant(t *testing.T, meetingID string, identity domain.Identity) *domain.Participant {
	t.Helper()
	ctx := context.Background()
	meeting, err := f.repo.GetMeeting(ctx, meetingID, false)
	require.NoError(t, err)
	p, err := f.repo.FindParticipant(ctx, meeting.ID, identity)
	require.NoError(t, err)
	return p
}

func boolPtr(v bool) *bool {
	return &v
}
