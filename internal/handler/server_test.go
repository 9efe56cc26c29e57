package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/activity"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/cache"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/export"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/fanout"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/handler"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/hub"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/registry"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/repository"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/database"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/jwt"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/middleware"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/pubsub"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/response"
	"github.com/saifiimuhammad/Pentutor-Backend/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	*httptest.Server
	tokens *jwt.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

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

	broker := pubsub.NewMemoryPubSub()
	t.Cleanup(func() { broker.Close() })

	h := hub.NewHub(config.WebSocketConfig{})
	go h.Run()
	t.Cleanup(h.Stop)

	fo := fanout.New(broker, h, "test")
	require.NoError(t, fo.Start(ctx))

	reg := registry.NewMemoryRegistry()
	meetingRepo := repository.NewGormMeetingRepository(db)

	snapshots := service.NewSnapshotService(repository.NewGormSnapshotRepository(db), meetingRepo,
		cache.NewMemorySnapshotCache("test"), time.Minute)
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	exporter := export.NewWhiteboardExporter(snapshots, store, "")

	meetings := service.NewMeetingService(meetingRepo, fo, reg, config.MeetingConfig{PasswordCost: bcrypt.MinCost}, exporter)
	t.Cleanup(func() { meetings.Stop() })
	rooms := service.NewRoomService(reg, h, fo, meetings, meetings)
	chats := service.NewChatService(repository.NewGormChatRepository(db), fo)
	alerts := service.NewAlertService(repository.NewGormAlertRepository(db), meetingRepo,
		activity.NewMemoryStore(), fo, config.AlertsConfig{})

	tokens, err := jwt.NewManager("test-secret", time.Hour, "")
	require.NoError(t, err)
	auth := middleware.NewAuthMiddleware(tokens)

	router := handler.NewRouter(
		handler.NewHandler(meetings, chats, alerts, exporter, time.Minute, auth),
		handler.NewWSHandler(h, rooms, meetings, chats, snapshots, fo, auth),
		zerolog.Nop(),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, tokens: tokens}
}

func (s *testServer) token(t *testing.T, userID, username string) string {
	t.Helper()
	token, _, err := s.tokens.GenerateAccessToken(userID, username, "")
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// raw performs a GET and returns the undecoded body.
func (s *testServer) raw(t *testing.T, path, token string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (s *testServer) dial(t *testing.T, path string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

// readUntil reads frames until one of type msgType arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var frame map[string]interface{}
		require.NoError(t, conn.ReadJSON(&frame))
		if frame["type"] == msgType {
			return frame
		}
	}
}
