package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/hub"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/middleware"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/response"
)

// Query parameters read on connect.
const (
	queryPassword   = "password"
	queryGuestToken = "guest_token"
	queryName       = "name"
)

// WSHandler handles WebSocket connections for every room kind.
type WSHandler struct {
	hub       *hub.Hub
	rooms     service.RoomService
	meetings  service.MeetingService
	chats     service.ChatService
	snapshots service.SnapshotService
	publisher service.Publisher
	auth      *middleware.AuthMiddleware
	upgrader  websocket.Upgrader
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(
	h *hub.Hub,
	rooms service.RoomService,
	meetings service.MeetingService,
	chats service.ChatService,
	snapshots service.SnapshotService,
	publisher service.Publisher,
	auth *middleware.AuthMiddleware,
) *WSHandler {
	return &WSHandler{
		hub:       h,
		rooms:     rooms,
		meetings:  meetings,
		chats:     chats,
		snapshots: snapshots,
		publisher: publisher,
		auth:      auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
}

// RegisterRoutes registers the WebSocket routes.
func (h *WSHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/meetings/{meeting_id}", h.roomHandler(func(v map[string]string) domain.RoomKey {
		return domain.MeetingRoom(v["meeting_id"])
	}))
	r.HandleFunc("/ws/chat/{room_id}", h.roomHandler(func(v map[string]string) domain.RoomKey {
		return domain.ChatRoom(v["room_id"])
	}))
	r.HandleFunc("/ws/whiteboard/{meeting_id}", h.roomHandler(func(v map[string]string) domain.RoomKey {
		return domain.WhiteboardRoom(v["meeting_id"])
	}))
	r.HandleFunc("/ws/alerts", h.HandleAlerts)
}

func (h *WSHandler) roomHandler(roomOf func(map[string]string) domain.RoomKey) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, roomOf(mux.Vars(r)))
	}
}

// HandleAlerts serves the caller's personal alert channel.
func (h *WSHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.Authenticate(r)
	if err != nil || claims == nil {
		response.WriteError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "authentication required")
		return
	}
	h.serve(w, r, domain.UserRoom(claims.UserID))
}

// serve admits the caller, upgrades the connection and pumps frames until
// it closes. Refusals are plain HTTP errors sent before the upgrade.
func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, room domain.RoomKey) {
	ctx := r.Context()
	l := pkglog.Ctx(ctx)

	identity, err := h.identityFrom(r)
	if err != nil {
		response.WriteError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, err.Error())
		return
	}

	session, err := h.rooms.Admit(ctx, room, service.Credentials{
		Identity: identity,
		Password: r.URL.Query().Get(queryPassword),
	})
	if err != nil {
		status, code, ok := errorStatus(err)
		if !ok {
			l.Error().Err(err).Str(pkglog.FieldRoom, room.String()).Msg("admission failed")
			response.WriteError(w, status, code, "internal server error")
			return
		}
		response.WriteError(w, status, code, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	// The request context ends with the handler; sessions outlive it.
	sctx := pkglog.WithFields(pkglog.WithLogger(context.Background(), l),
		pkglog.FieldRoom, room.String(),
		pkglog.FieldSessionID, session.ID,
	)

	client := hub.NewClient(h.hub, conn, session)
	client.SetDisconnectHandler(func(c *hub.Client) {
		if err := h.rooms.Deregister(sctx, c); err != nil {
			sl := pkglog.Ctx(sctx)
			sl.Error().Err(err).Msg("disconnect handler error")
		}
	})

	// load is queued before the client can receive any live frame.
	if room.Kind == domain.RoomKindWhiteboard {
		h.sendLatestSnapshot(sctx, client)
	}

	if err := h.rooms.Register(sctx, client); err != nil {
		l.Error().Err(err).Msg("failed to register session")
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "registration failed"))
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump(func(c *hub.Client, message []byte) {
		h.handleMessage(sctx, c, message)
	})
}

// identityFrom reads the caller's identity. An invalid token is an error;
// no token means a guest.
func (h *WSHandler) identityFrom(r *http.Request) (domain.Identity, error) {
	claims, err := h.auth.Authenticate(r)
	if err != nil {
		return domain.Identity{}, err
	}
	if claims != nil {
		return domain.Identity{UserID: claims.UserID, Username: claims.Username}, nil
	}
	q := r.URL.Query()
	return domain.Identity{
		GuestToken:  q.Get(queryGuestToken),
		DisplayName: q.Get(queryName),
	}, nil
}

func (h *WSHandler) sendLatestSnapshot(ctx context.Context, c *hub.Client) {
	data, ok, err := h.snapshots.Latest(ctx, c.Session.Room.ID)
	if err != nil {
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Msg("failed to load whiteboard")
		return
	}
	if ok {
		c.SendMessage(&domain.WhiteboardMessage{Type: domain.MsgTypeLoad, Data: data})
	}
}

func (h *WSHandler) handleMessage(ctx context.Context, c *hub.Client, message []byte) {
	l := pkglog.Ctx(ctx)
	session := c.Session
	room := session.Room

	in, err := domain.DecodeInbound(room.Kind, message)
	if err != nil {
		l.Warn().Err(err).Msg("rejected frame")
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, err.Error()))
		return
	}

	switch m := in.(type) {
	case domain.PingIn:
		c.SendMessage(&domain.PongMessage{Type: domain.MsgTypePong})

	case domain.ChatIn:
		if room.Kind == domain.RoomKindMeeting {
			err = h.meetings.Chat(ctx, room.ID, session.Identity, m.Message)
		} else {
			_, err = h.chats.Send(ctx, room.ID, session.Identity, m.Message)
		}

	case domain.ReactionIn:
		err = h.meetings.React(ctx, room.ID, session.Identity, m.Emoji)

	case domain.MediaStateIn:
		_, err = h.meetings.UpdateMediaState(ctx, room.ID, session.Identity, m.Patch)

	case domain.SignalIn:
		err = h.publisher.Publish(ctx, room, &domain.SignalMessage{
			Type:       domain.MsgTypeSignal,
			SignalType: m.SignalType,
			From:       session.ID,
			FromUser:   session.Identity.Name(),
			To:         m.To,
			Payload:    m.Payload,
		}, session.ID)

	case domain.WhiteboardUpdateIn:
		err = h.handleWhiteboardUpdate(ctx, session, m)
	}

	if err != nil {
		status, code, ok := errorStatus(err)
		if !ok {
			l.Error().Err(err).Msg("failed to handle frame")
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "internal server error"))
			return
		}
		l.Warn().Err(err).Int(pkglog.FieldStatus, status).Msg("frame refused")
		c.SendMessage(domain.NewErrorMessage(code, err.Error()))
	}
}

// handleWhiteboardUpdate saves the drawing before relaying it, so anyone
// connecting after the relay loads at least this state.
func (h *WSHandler) handleWhiteboardUpdate(ctx context.Context, session *domain.Session, m domain.WhiteboardUpdateIn) error {
	var author *string
	if session.Identity.Authenticated() {
		uid := session.Identity.UserID
		author = &uid
	}

	if _, err := h.snapshots.Save(ctx, session.Room.ID, m.Data, author); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		l := pkglog.Ctx(ctx)
		l.Error().Err(err).Msg("failed to save whiteboard")
	}

	return h.publisher.Publish(ctx, session.Room, &domain.WhiteboardMessage{
		Type: domain.MsgTypeUpdate,
		Data: m.Data,
	}, session.ID)
}
