package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/config"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	pkglog "github.com/saifiimuhammad/Pentutor-Backend/pkg/log"
)

// DisconnectHandler is called when a client disconnects.
type DisconnectHandler func(*Client)

// Client represents a connected WebSocket client.
type Client struct {
	ID                string
	Hub               *Hub
	Conn              *websocket.Conn
	Send              chan []byte
	Session           *domain.Session
	disconnectHandler DisconnectHandler

	mu     sync.Mutex
	closed bool
}

// NewClient creates a client for session on conn. The client id is the
// session id.
func NewClient(h *Hub, conn *websocket.Conn, session *domain.Session) *Client {
	size := h.config.SendBuffer
	if size <= 0 {
		size = 256
	}
	return &Client{
		ID:      session.ID,
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, size),
		Session: session,
	}
}

// SetDisconnectHandler sets the handler to be called on disconnect.
func (c *Client) SetDisconnectHandler(handler DisconnectHandler) {
	c.disconnectHandler = handler
}

// trySend queues data without blocking. It returns false when the queue is
// full or already closed.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Hub manages the WebSocket connections of this instance.
type Hub struct {
	clients    map[string]*Client
	rooms      map[string]map[string]*Client // room key -> client id -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *RoomMessage
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

// RoomMessage is a frame to be delivered to a room.
type RoomMessage struct {
	RoomID  string
	Message []byte
	Exclude string // Client ID to exclude from delivery
}

// NewHub creates a new Hub.
func NewHub(cfg config.WebSocketConfig) *Hub {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 1 << 20
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 9 / 10
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *RoomMessage, 1024),
		done:       make(chan struct{}),
		config:     cfg,
	}
}

// Run starts the hub's main loop. Registration, removal and delivery are
// handled by this one goroutine, so frames for a room reach each client in
// the order they were handed to Deliver.
func (h *Hub) Run() {
	l := pkglog.L()
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for _, client := range h.clients {
				client.close()
			}
			h.clients = make(map[string]*Client)
			h.rooms = make(map[string]map[string]*Client)
			h.mu.Unlock()
			return

		case client := <-h.register:
			room := client.Session.Room.String()
			h.mu.Lock()
			h.clients[client.ID] = client
			if _, ok := h.rooms[room]; !ok {
				h.rooms[room] = make(map[string]*Client)
			}
			h.rooms[room][client.ID] = client
			h.mu.Unlock()
			l.Debug().Str(pkglog.FieldSessionID, client.ID).Str(pkglog.FieldRoom, room).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.ID]; ok && current == client {
				room := client.Session.Room.String()
				if roomClients, ok := h.rooms[room]; ok {
					delete(roomClients, client.ID)
					if len(roomClients) == 0 {
						delete(h.rooms, room)
					}
				}
				delete(h.clients, client.ID)
				client.close()
				l.Debug().Str(pkglog.FieldSessionID, client.ID).Str(pkglog.FieldRoom, room).Msg("client unregistered")
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for clientID, client := range h.rooms[msg.RoomID] {
				if clientID == msg.Exclude {
					continue
				}
				if !client.trySend(msg.Message) {
					// Client's send buffer is full
					go h.removeClient(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Stop ends Run and closes every client's send queue.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client to the hub and to its session's room. Frames
// delivered after Register returns reach the client.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Deliver queues a raw frame for every local client in room except exclude.
func (h *Hub) Deliver(room string, message []byte, exclude string) {
	select {
	case h.broadcast <- &RoomMessage{RoomID: room, Message: message, Exclude: exclude}:
	case <-h.done:
	}
}

// RoomSize returns the number of local clients in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientCount returns the number of local clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) removeClient(client *Client) {
	h.Unregister(client)
}

// ReadPump pumps frames from the WebSocket connection to handler. It blocks
// until the connection closes.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		// Call disconnect handler before unregistering
		if c.disconnectHandler != nil {
			c.disconnectHandler(c)
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Hub.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l := pkglog.L()
				l.Warn().Err(err).Str(pkglog.FieldSessionID, c.ID).Msg("websocket error")
			}
			break
		}

		if c.Session != nil {
			c.Session.UpdateActivity()
		}

		handler(c, message)
	}
}

// WritePump pumps frames from the send queue to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendMessage queues a message for this client only. A full queue drops the
// client.
func (c *Client) SendMessage(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	if !c.trySend(data) {
		go c.Hub.removeClient(c)
	}
	return nil
}
