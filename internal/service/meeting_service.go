package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/audit"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/idgen"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/registry"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/repository"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

const maxMeetingIDAttempts = 10

var ErrMeetingIDExhausted = errors.New("could not allocate a meeting id")

// meetingServiceImpl implements MeetingService interface.
type meetingServiceImpl struct {
	repo       repository.MeetingRepository
	publisher  Publisher
	registry   registry.Registry
	meetingIDs idgen.Generator
	locks      *stripedLock
	config     config.MeetingConfig
	hooks      []MeetingHook
	now        func() time.Time

	// Grace period timers for disconnected participants
	graceTimers map[string]*time.Timer
	timersMu    sync.Mutex
	stopped     bool
}

// NewMeetingService creates a new meeting service. reg is consulted when a
// disconnect grace period expires.
func NewMeetingService(repo repository.MeetingRepository, publisher Publisher, reg registry.Registry, cfg config.MeetingConfig, hooks ...MeetingHook) MeetingService {
	if cfg.DefaultMaxParticipants <= 0 {
		cfg.DefaultMaxParticipants = 100
	}
	if cfg.PasswordCost <= 0 {
		cfg.PasswordCost = bcrypt.DefaultCost
	}
	return &meetingServiceImpl{
		repo:        repo,
		publisher:   publisher,
		registry:    reg,
		meetingIDs:  idgen.NewMeetingIDGenerator(),
		locks:       newStripedLock(cfg.LockStripes),
		config:      cfg,
		hooks:       hooks,
		now:         func() time.Time { return time.Now().UTC() },
		graceTimers: make(map[string]*time.Timer),
	}
}

// Create creates a meeting hosted by host.
func (s *meetingServiceImpl) Create(ctx context.Context, host domain.Identity, req *domain.CreateMeetingRequest) (*domain.CreateMeetingResponse, error) {
	if !host.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	meetingID, err := s.allocateMeetingID(ctx)
	if err != nil {
		return nil, err
	}

	password := req.Password
	if password == "" {
		if password, err = idgen.Password(); err != nil {
			return nil, err
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	meeting := &domain.Meeting{
		MeetingID:       meetingID,
		Title:           req.Title,
		HostID:          host.UserID,
		HostUsername:    host.Name(),
		Type:            req.MeetingType,
		PasswordHash:    string(hash),
		Status:          domain.MeetingStatusWaiting,
		MaxParticipants: req.MaxParticipants,
		Flags:           flagsFrom(req),
		ScheduledAt:     req.ScheduledTime,
	}
	if meeting.Type == "" {
		meeting.Type = domain.MeetingTypeInstant
	}
	if meeting.MaxParticipants <= 0 {
		meeting.MaxParticipants = s.config.DefaultMaxParticipants
	}
	if meeting.Title == "" {
		meeting.Title = fmt.Sprintf("%s's meeting", host.Name())
	}
	if meeting.Type == domain.MeetingTypeInstant {
		if err := meeting.Start(now); err != nil {
			return nil, err
		}
	}

	var hostRow *domain.Participant
	err = s.repo.Transaction(ctx, func(tx repository.MeetingRepository) error {
		if err := tx.CreateMeeting(ctx, meeting); err != nil {
			return err
		}
		hostRow = domain.NewParticipant(meeting.ID, host, domain.RoleHost, now)
		return tx.CreateParticipant(ctx, hostRow)
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionCreateMeeting, host.UserID, meetingID, "meeting created")
	s.fire(ctx, MeetingCreated, meeting)
	if meeting.Status == domain.MeetingStatusActive {
		s.fire(ctx, MeetingStarted, meeting)
	}

	return &domain.CreateMeetingResponse{
		MeetingID:   meetingID,
		Password:    password,
		JoinURL:     fmt.Sprintf("/meetings/%s", meetingID),
		Status:      string(meeting.Status),
		Meeting:     meeting,
		Participant: hostRow,
		Message:     "Meeting created successfully",
	}, nil
}

func (s *meetingServiceImpl) allocateMeetingID(ctx context.Context) (string, error) {
	for i := 0; i < maxMeetingIDAttempts; i++ {
		id, err := s.meetingIDs.Generate()
		if err != nil {
			return "", err
		}
		exists, err := s.repo.MeetingIDExists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", ErrMeetingIDExhausted
}

func flagsFrom(req *domain.CreateMeetingRequest) domain.MeetingFlags {
	flags := domain.DefaultMeetingFlags()
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&flags.WaitingRoom, req.WaitingRoom)
	set(&flags.AllowScreenShare, req.AllowScreenShare)
	set(&flags.AllowUnmute, req.AllowUnmute)
	set(&flags.EnableChat, req.EnableChat)
	set(&flags.EnableReactions, req.EnableReactions)
	return flags
}

// Get returns the public summary of a meeting.
func (s *meetingServiceImpl) Get(ctx context.Context, meetingID string) (*domain.MeetingSummary, error) {
	meeting, err := s.getMeeting(ctx, s.repo, meetingID, false)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountActiveParticipants(ctx, meeting.ID)
	if err != nil {
		return nil, err
	}
	return &domain.MeetingSummary{
		Meeting:            meeting,
		HasPassword:        meeting.HasPassword(),
		ActiveParticipants: count,
	}, nil
}

// Join admits identity as a participant. Checks and the write happen under
// the meeting's lock inside one transaction.
func (s *meetingServiceImpl) Join(ctx context.Context, meetingID string, identity domain.Identity, password string) (*domain.JoinMeetingResponse, error) {
	issuedToken := ""
	if identity.Anonymous() {
		token, err := idgen.GuestToken()
		if err != nil {
			return nil, err
		}
		identity.GuestToken = token
		issuedToken = token
	}

	unlock := s.locks.lock(meetingID)
	defer unlock()

	var (
		meeting     *domain.Meeting
		participant *domain.Participant
		joined      bool
		started     bool
	)
	err := s.repo.Transaction(ctx, func(tx repository.MeetingRepository) error {
		var err error
		meeting, err = s.getMeeting(ctx, tx, meetingID, true)
		if err != nil {
			return err
		}
		if meeting.IsEnded() {
			return domain.ErrEnded
		}

		participant, err = s.findParticipant(ctx, tx, meeting.ID, identity)
		if err != nil {
			return err
		}
		holdsActive := participant != nil && participant.IsActive()
		if !holdsActive && !meeting.PasswordMatches(password) {
			return domain.ErrInvalidPassword
		}
		isHost := identity.Authenticated() && identity.UserID == meeting.HostID
		now := s.now()

		if holdsActive {
			if !isHost || meeting.Status != domain.MeetingStatusWaiting {
				return domain.ErrAlreadyJoined
			}
		} else {
			count, err := tx.CountActiveParticipants(ctx, meeting.ID)
			if err != nil {
				return err
			}
			if count >= meeting.MaxParticipants {
				return domain.ErrFull
			}

			if participant != nil {
				participant.Rejoin(now, displayName(identity))
				err = tx.UpdateParticipant(ctx, participant)
			} else {
				participant = domain.NewParticipant(meeting.ID, identity, domain.RoleParticipant, now)
				err = tx.CreateParticipant(ctx, participant)
			}
			if err != nil {
				return err
			}
			joined = true
		}

		if isHost && meeting.Status == domain.MeetingStatusWaiting {
			if err := meeting.Start(now); err != nil {
				return err
			}
			if err := tx.UpdateMeetingStatus(ctx, meeting); err != nil {
				return err
			}
			started = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	room := domain.MeetingRoom(meetingID)
	if joined {
		audit.Log(ctx, audit.ActionJoinMeeting, actorOf(identity), meetingID, "participant joined")
		s.publish(ctx, room, &domain.ParticipantJoinedMessage{
			Type:        domain.MsgTypeParticipantJoined,
			Participant: participant,
		})
	}
	if started {
		s.publish(ctx, room, &domain.MeetingStartedMessage{
			Type:      domain.MsgTypeMeetingStarted,
			MeetingID: meetingID,
			StartedAt: *meeting.StartedAt,
		})
		s.fire(ctx, MeetingStarted, meeting)
	}

	return &domain.JoinMeetingResponse{
		Participant: participant,
		GuestToken:  issuedToken,
		Message:     "Joined meeting successfully",
	}, nil
}

// Leave closes identity's active participant row.
func (s *meetingServiceImpl) Leave(ctx context.Context, meetingID string, identity domain.Identity) error {
	if err := s.leave(ctx, meetingID, identity, domain.LeaveReasonLeft); err != nil {
		return err
	}
	s.cancelGrace(graceKey(meetingID, identity.Key()))
	return nil
}

func (s *meetingServiceImpl) leave(ctx context.Context, meetingID string, identity domain.Identity, reason string) error {
	if identity.Anonymous() {
		return domain.ErrAlreadyLeft
	}

	unlock := s.locks.lock(meetingID)
	defer unlock()

	var participant *domain.Participant
	err := s.repo.Transaction(ctx, func(tx repository.MeetingRepository) error {
		meeting, err := s.getMeeting(ctx, tx, meetingID, true)
		if err != nil {
			return err
		}
		participant, err = s.findParticipant(ctx, tx, meeting.ID, identity)
		if err != nil {
			return err
		}
		if participant == nil || !participant.IsActive() {
			return domain.ErrAlreadyLeft
		}
		participant.Leave(s.now())
		return tx.UpdateParticipant(ctx, participant)
	})
	if err != nil {
		return err
	}

	action := audit.ActionLeaveMeeting
	if reason == domain.LeaveReasonTimeout {
		action = audit.ActionTimeoutLeave
	}
	audit.LogWithDetail(ctx, action, actorOf(identity), meetingID, reason, "participant left")

	s.publish(ctx, domain.MeetingRoom(meetingID), &domain.ParticipantLeftMessage{
		Type:          domain.MsgTypeParticipantLeft,
		ParticipantID: participant.ID,
		User:          participant.DisplayName,
		Reason:        reason,
	})
	return nil
}

// End ends the meeting. Only an active host or co-host may do so.
func (s *meetingServiceImpl) End(ctx context.Context, meetingID string, identity domain.Identity) error {
	if identity.Anonymous() {
		return domain.ErrUnauthorized
	}

	unlock := s.locks.lock(meetingID)
	defer unlock()

	var (
		meeting *domain.Meeting
		closed  int64
	)
	err := s.repo.Transaction(ctx, func(tx repository.MeetingRepository) error {
		var err error
		meeting, err = s.getMeeting(ctx, tx, meetingID, true)
		if err != nil {
			return err
		}
		if meeting.IsEnded() {
			return domain.ErrEnded
		}

		participant, err := s.findParticipant(ctx, tx, meeting.ID, identity)
		if err != nil {
			return err
		}
		if participant == nil || !participant.IsActive() ||
			!domain.Authorize(domain.ActionEndMeeting, participant.Role, meeting.Flags) {
			return domain.ErrUnauthorized
		}

		if err := meeting.End(s.now()); err != nil {
			return err
		}
		if err := tx.UpdateMeetingStatus(ctx, meeting); err != nil {
			return err
		}
		closed, err = tx.CloseActiveParticipants(ctx, meeting.ID, *meeting.EndedAt)
		return err
	})
	if err != nil {
		return err
	}

	s.cancelMeetingGrace(meetingID)
	audit.LogWithDetail(ctx, audit.ActionEndMeeting, actorOf(identity), meetingID,
		fmt.Sprintf("closed %d participants", closed), "meeting ended")

	s.publish(ctx, domain.MeetingRoom(meetingID), &domain.MeetingEndedMessage{
		Type:    domain.MsgTypeMeetingEnded,
		EndedBy: identity.Name(),
		Message: "Meeting has been ended by the host",
	})
	s.fire(ctx, MeetingEnded, meeting)
	return nil
}

// ListParticipants returns the active participants. The caller must be one
// of them.
func (s *meetingServiceImpl) ListParticipants(ctx context.Context, meetingID string, identity domain.Identity) ([]*domain.Participant, error) {
	if !identity.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	meeting, err := s.getMeeting(ctx, s.repo, meetingID, false)
	if err != nil {
		return nil, err
	}
	caller, err := s.findParticipant(ctx, s.repo, meeting.ID, identity)
	if err != nil {
		return nil, err
	}
	if caller == nil || !caller.IsActive() ||
		!domain.Authorize(domain.ActionListParticipants, caller.Role, meeting.Flags) {
		return nil, domain.ErrUnauthorized
	}

	return s.repo.ListActiveParticipants(ctx, meeting.ID)
}

// UpdateMediaState applies patch to the caller's active row.
func (s *meetingServiceImpl) UpdateMediaState(ctx context.Context, meetingID string, identity domain.Identity, patch domain.MediaPatch) (*domain.Participant, error) {
	if identity.Anonymous() {
		return nil, domain.ErrAlreadyLeft
	}

	unlock := s.locks.lock(meetingID)
	defer unlock()

	var participant *domain.Participant
	err := s.repo.Transaction(ctx, func(tx repository.MeetingRepository) error {
		meeting, err := s.getMeeting(ctx, tx, meetingID, false)
		if err != nil {
			return err
		}
		if meeting.IsEnded() {
			return domain.ErrEnded
		}
		participant, err = s.findParticipant(ctx, tx, meeting.ID, identity)
		if err != nil {
			return err
		}
		if participant == nil || !participant.IsActive() {
			return domain.ErrAlreadyLeft
		}
		if !domain.AuthorizeMedia(patch, participant.Role, meeting.Flags) {
			return domain.ErrFeatureDisabled
		}
		participant.Apply(patch)
		return tx.UpdateParticipant(ctx, participant)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.MeetingRoom(meetingID), &domain.MediaStateMessage{
		Type:          domain.MsgTypeMediaState,
		ParticipantID: participant.ID,
		User:          participant.DisplayName,
		Media:         participant.Media,
	})
	return participant, nil
}

// Admit checks a connecting client. A caller that already holds an active
// participant row is let through without password or capacity checks.
func (s *meetingServiceImpl) Admit(ctx context.Context, meetingID string, identity domain.Identity, password string) error {
	meeting, err := s.getMeeting(ctx, s.repo, meetingID, false)
	if err != nil {
		return err
	}
	if meeting.IsEnded() {
		return domain.ErrEnded
	}

	participant, err := s.findParticipant(ctx, s.repo, meeting.ID, identity)
	if err != nil {
		return err
	}
	if participant != nil && participant.IsActive() {
		return nil
	}

	if !meeting.PasswordMatches(password) {
		return domain.ErrInvalidPassword
	}

	count, err := s.repo.CountActiveParticipants(ctx, meeting.ID)
	if err != nil {
		return err
	}
	if count >= meeting.MaxParticipants {
		return domain.ErrFull
	}
	return nil
}

// Chat relays a chat line to the whole meeting, sender included.
func (s *meetingServiceImpl) Chat(ctx context.Context, meetingID string, identity domain.Identity, text string) error {
	if err := s.authorize(ctx, meetingID, identity, domain.ActionChat); err != nil {
		return err
	}
	s.publish(ctx, domain.MeetingRoom(meetingID), &domain.ChatMessageOut{
		Type:      domain.MsgTypeChat,
		Message:   text,
		User:      identity.Name(),
		Timestamp: s.now(),
	})
	return nil
}

// React relays a reaction to the whole meeting, sender included.
func (s *meetingServiceImpl) React(ctx context.Context, meetingID string, identity domain.Identity, emoji string) error {
	if err := s.authorize(ctx, meetingID, identity, domain.ActionReact); err != nil {
		return err
	}
	s.publish(ctx, domain.MeetingRoom(meetingID), &domain.ReactionMessage{
		Type:  domain.MsgTypeReaction,
		Emoji: emoji,
		User:  identity.Name(),
	})
	return nil
}

// authorize checks action for identity's current role. A caller without a
// row is treated as a participant.
func (s *meetingServiceImpl) authorize(ctx context.Context, meetingID string, identity domain.Identity, action domain.Action) error {
	meeting, err := s.getMeeting(ctx, s.repo, meetingID, false)
	if err != nil {
		return err
	}
	if meeting.IsEnded() {
		return domain.ErrEnded
	}

	role := domain.RoleParticipant
	participant, err := s.findParticipant(ctx, s.repo, meeting.ID, identity)
	if err != nil {
		return err
	}
	if participant != nil && participant.IsActive() {
		role = participant.Role
	}
	if !domain.Authorize(action, role, meeting.Flags) {
		return domain.ErrFeatureDisabled
	}
	return nil
}

// OnConnected cancels a pending disconnect grace period.
func (s *meetingServiceImpl) OnConnected(ctx context.Context, session *domain.Session) {
	if session.Room.Kind != domain.RoomKindMeeting || session.Identity.Anonymous() {
		return
	}
	s.cancelGrace(graceKey(session.Room.ID, session.Identity.Key()))
}

// OnDisconnected starts the grace period when the participant's last
// connection to the meeting closed.
func (s *meetingServiceImpl) OnDisconnected(ctx context.Context, session *domain.Session, remaining []registry.Entry) {
	if session.Room.Kind != domain.RoomKindMeeting || session.Identity.Anonymous() {
		return
	}
	if s.config.DisconnectGracePeriod <= 0 {
		return
	}
	identityKey := session.Identity.Key()
	if registry.HasIdentity(remaining, identityKey) {
		return
	}

	meetingID := session.Room.ID
	identity := session.Identity
	key := graceKey(meetingID, identityKey)

	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if s.stopped {
		return
	}
	if timer, ok := s.graceTimers[key]; ok {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.config.DisconnectGracePeriod, func() {
		s.timersMu.Lock()
		if s.graceTimers[key] != timer {
			s.timersMu.Unlock()
			return
		}
		delete(s.graceTimers, key)
		s.timersMu.Unlock()

		s.expireGrace(meetingID, identity)
	})
	s.graceTimers[key] = timer

	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldMeetingID, meetingID).
		Dur("grace_period", s.config.DisconnectGracePeriod).
		Msg("disconnect grace period started")
}

// expireGrace marks the participant left unless it reconnected, possibly
// on another instance.
func (s *meetingServiceImpl) expireGrace(meetingID string, identity domain.Identity) {
	ctx := log.WithFields(context.Background(), log.FieldMeetingID, meetingID)
	l := log.Ctx(ctx)

	entries, err := s.registry.Members(ctx, domain.MeetingRoom(meetingID))
	if err != nil {
		l.Error().Err(err).Msg("failed to check members after grace period")
		return
	}
	if registry.HasIdentity(entries, identity.Key()) {
		return
	}

	err = s.leave(ctx, meetingID, identity, domain.LeaveReasonTimeout)
	if err != nil && !errors.Is(err, domain.ErrAlreadyLeft) && !errors.Is(err, domain.ErrNotFound) {
		l.Error().Err(err).Msg("failed to mark participant left after grace period")
	}
}

func graceKey(meetingID, identityKey string) string {
	return meetingID + "|" + identityKey
}

func (s *meetingServiceImpl) cancelGrace(key string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.graceTimers[key]; ok {
		timer.Stop()
		delete(s.graceTimers, key)
	}
}

func (s *meetingServiceImpl) cancelMeetingGrace(meetingID string) {
	prefix := meetingID + "|"
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for key, timer := range s.graceTimers {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			timer.Stop()
			delete(s.graceTimers, key)
		}
	}
}

// Stop cancels all grace period timers.
func (s *meetingServiceImpl) Stop() error {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	s.stopped = true
	for key, timer := range s.graceTimers {
		timer.Stop()
		delete(s.graceTimers, key)
	}
	return nil
}

func (s *meetingServiceImpl) getMeeting(ctx context.Context, repo repository.MeetingRepository, meetingID string, forUpdate bool) (*domain.Meeting, error) {
	meeting, err := repo.GetMeeting(ctx, meetingID, forUpdate)
	if err != nil {
		if errors.Is(err, repository.ErrMeetingNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return meeting, nil
}

// findParticipant returns nil, nil when identity has no row.
func (s *meetingServiceImpl) findParticipant(ctx context.Context, repo repository.MeetingRepository, meetingPK uint, identity domain.Identity) (*domain.Participant, error) {
	p, err := repo.FindParticipant(ctx, meetingPK, identity)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (s *meetingServiceImpl) publish(ctx context.Context, room domain.RoomKey, msg domain.Outbound) {
	if err := s.publisher.Publish(ctx, room, msg, ""); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoom, room.String()).Str(log.FieldEvent, msg.MessageType()).Msg("failed to publish")
	}
}

// fire runs hooks detached from the caller's cancellation.
func (s *meetingServiceImpl) fire(ctx context.Context, event MeetingEvent, meeting *domain.Meeting) {
	if len(s.hooks) == 0 {
		return
	}
	snapshot := *meeting
	ctx = context.WithoutCancel(ctx)
	for _, h := range s.hooks {
		h := h
		go func() {
			defer func() {
				if r := recover(); r != nil {
					l := log.Ctx(ctx)
					l.Error().Interface("panic", r).Str(log.FieldEvent, string(event)).Msg("meeting hook panicked")
				}
			}()
			h.OnMeetingEvent(ctx, event, &snapshot)
		}()
	}
}

func displayName(identity domain.Identity) string {
	if identity.Authenticated() {
		return identity.Username
	}
	return identity.DisplayName
}

func actorOf(identity domain.Identity) string {
	if identity.Authenticated() {
		return identity.UserID
	}
	return "guest:" + identity.Name()
}
