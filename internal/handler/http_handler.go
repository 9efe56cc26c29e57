package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/middleware"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/response"
)

// WhiteboardExports serves whiteboards exported when meetings end.
type WhiteboardExports interface {
	URL(ctx context.Context, meetingID string, expires time.Duration) (string, error)
	Open(ctx context.Context, meetingID string) (io.ReadCloser, error)
}

// Handler handles HTTP requests for meetings, chat history and alerts.
type Handler struct {
	meetingService service.MeetingService
	chatService    service.ChatService
	alertService   service.AlertService
	exports        WhiteboardExports
	exportURLTTL   time.Duration
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(meetingService service.MeetingService, chatService service.ChatService, alertService service.AlertService, exports WhiteboardExports, exportURLTTL time.Duration, authMiddleware *middleware.AuthMiddleware) *Handler {
	if exportURLTTL <= 0 {
		exportURLTTL = 15 * time.Minute
	}
	return &Handler{
		meetingService: meetingService,
		chatService:    chatService,
		alertService:   alertService,
		exports:        exports,
		exportURLTTL:   exportURLTTL,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		meetings := api.Group("/meetings")
		{
			meetings.GET("/:meeting_id", h.GetMeeting)
			meetings.POST("/:meeting_id/join", h.authMiddleware.OptionalAuth(), h.JoinMeeting)
			meetings.POST("/:meeting_id/leave", h.authMiddleware.OptionalAuth(), h.LeaveMeeting)

			// Protected routes
			meetings.POST("", h.authMiddleware.RequireAuth(), h.CreateMeeting)
			meetings.POST("/:meeting_id/end", h.authMiddleware.RequireAuth(), h.EndMeeting)
			meetings.GET("/:meeting_id/participants", h.authMiddleware.RequireAuth(), h.ListParticipants)
			meetings.GET("/:meeting_id/whiteboard", h.authMiddleware.RequireAuth(), h.GetWhiteboardExport)
			meetings.GET("/:meeting_id/whiteboard/download", h.authMiddleware.RequireAuth(), h.DownloadWhiteboardExport)
		}

		chat := api.Group("/chat", h.authMiddleware.RequireAuth())
		{
			chat.GET("/:room_id/messages", h.ListMessages)
		}

		alerts := api.Group("/alerts", h.authMiddleware.RequireAuth())
		{
			alerts.GET("", h.ListAlerts)
			alerts.POST("/heartbeat", h.Heartbeat)
			alerts.PATCH("/:id/read", h.MarkAlertRead)
		}
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	return domain.Identity{
		UserID:   middleware.GetUserID(c),
		Username: middleware.GetUsername(c),
	}
}

// fail writes err as an API error, logging unexpected ones.
func fail(c *gin.Context, err error, msg string) {
	status, code, ok := errorStatus(err)
	if !ok {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(msg)
		response.InternalError(c, msg)
		return
	}
	response.Error(c, status, code, err.Error())
}

// CreateMeeting creates a new meeting.
func (h *Handler) CreateMeeting(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create meeting request")
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.meetingService.Create(ctx, identityFrom(c), &req)
	if err != nil {
		fail(c, err, "failed to create meeting")
		return
	}

	response.Created(c, resp)
}

// GetMeeting returns the public summary of a meeting.
func (h *Handler) GetMeeting(c *gin.Context) {
	ctx := c.Request.Context()

	summary, err := h.meetingService.Get(ctx, c.Param("meeting_id"))
	if err != nil {
		fail(c, err, "failed to get meeting")
		return
	}

	response.Success(c, summary)
}

// JoinMeeting joins the caller to a meeting. Guests send a display name.
func (h *Handler) JoinMeeting(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.JoinMeetingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			l.Warn().Err(err).Msg("failed to bind join meeting request")
			response.BadRequest(c, err.Error())
			return
		}
	}

	identity := identityFrom(c)
	if !identity.Authenticated() {
		identity.DisplayName = req.Name
		identity.GuestToken = req.GuestToken
	}

	resp, err := h.meetingService.Join(ctx, c.Param("meeting_id"), identity, req.Password)
	if err != nil {
		fail(c, err, "failed to join meeting")
		return
	}

	response.Success(c, resp)
}

// LeaveMeeting closes the caller's participation.
func (h *Handler) LeaveMeeting(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.LeaveMeetingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			l.Warn().Err(err).Msg("failed to bind leave meeting request")
			response.BadRequest(c, err.Error())
			return
		}
	}

	identity := identityFrom(c)
	if !identity.Authenticated() {
		identity.GuestToken = req.GuestToken
	}

	if err := h.meetingService.Leave(ctx, c.Param("meeting_id"), identity); err != nil {
		fail(c, err, "failed to leave meeting")
		return
	}

	response.Success(c, gin.H{"message": "Left meeting successfully"})
}

// EndMeeting ends a meeting for everyone.
func (h *Handler) EndMeeting(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.meetingService.End(ctx, c.Param("meeting_id"), identityFrom(c)); err != nil {
		fail(c, err, "failed to end meeting")
		return
	}

	response.Success(c, gin.H{"message": "Meeting ended successfully"})
}

// ListParticipants lists the active participants of a meeting.
func (h *Handler) ListParticipants(c *gin.Context) {
	ctx := c.Request.Context()

	participants, err := h.meetingService.ListParticipants(ctx, c.Param("meeting_id"), identityFrom(c))
	if err != nil {
		fail(c, err, "failed to list participants")
		return
	}

	response.Success(c, gin.H{"participants": participants, "count": len(participants)})
}

// GetWhiteboardExport returns a link to the whiteboard saved when the
// meeting ended.
func (h *Handler) GetWhiteboardExport(c *gin.Context) {
	ctx := c.Request.Context()
	meetingID := c.Param("meeting_id")

	if _, err := h.meetingService.Get(ctx, meetingID); err != nil {
		fail(c, err, "failed to get meeting")
		return
	}

	url, err := h.exports.URL(ctx, meetingID, h.exportURLTTL)
	if err != nil {
		fail(c, err, "failed to get whiteboard export")
		return
	}

	response.Success(c, gin.H{
		"url":        url,
		"expires_at": time.Now().UTC().Add(h.exportURLTTL),
	})
}

// DownloadWhiteboardExport streams the exported whiteboard JSON.
func (h *Handler) DownloadWhiteboardExport(c *gin.Context) {
	ctx := c.Request.Context()
	meetingID := c.Param("meeting_id")

	if _, err := h.meetingService.Get(ctx, meetingID); err != nil {
		fail(c, err, "failed to get meeting")
		return
	}

	rc, err := h.exports.Open(ctx, meetingID)
	if err != nil {
		fail(c, err, "failed to open whiteboard export")
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "application/json", rc, map[string]string{
		"Content-Disposition": `attachment; filename="whiteboard-` + meetingID + `.json"`,
	})
}

// ListMessages returns chat room history, newest first.
func (h *Handler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.chatService.History(ctx, c.Param("room_id"), &req)
	if err != nil {
		fail(c, err, "failed to list messages")
		return
	}

	response.Success(c, result)
}

// ListAlerts returns the caller's alerts.
func (h *Handler) ListAlerts(c *gin.Context) {
	ctx := c.Request.Context()

	alerts, err := h.alertService.List(ctx, middleware.GetUserID(c))
	if err != nil {
		fail(c, err, "failed to list alerts")
		return
	}

	response.Success(c, gin.H{"alerts": alerts})
}

// Heartbeat records that the caller is active in a meeting.
func (h *Handler) Heartbeat(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.alertService.Heartbeat(ctx, middleware.GetUserID(c), req.MeetingID); err != nil {
		fail(c, err, "failed to record heartbeat")
		return
	}

	response.Success(c, gin.H{"status": "ok"})
}

// MarkAlertRead marks one of the caller's alerts read.
func (h *Handler) MarkAlertRead(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid alert id")
		return
	}

	if err := h.alertService.MarkRead(ctx, middleware.GetUserID(c), uint(id)); err != nil {
		fail(c, err, "failed to mark alert read")
		return
	}

	response.Success(c, gin.H{"status": "ok"})
}
