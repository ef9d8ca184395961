package events

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is one committed registry mutation, broadcast to every connected
// client. Events are emitted strictly after commit; the feed never observes
// partial state.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// Publisher is the hook the registry publishes through.
type Publisher interface {
	Publish(evt Event)
}

// ErrHubClosed is returned when a client connects after shutdown began.
var ErrHubClosed = errors.New("event hub is closed")

// Hub fans committed events out over WebSocket connections.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	connections map[string]*Connection

	broadcast  chan Event
	register   chan *Connection
	unregister chan *Connection
	stop       chan struct{}
	done       chan struct{}
}

// Connection represents one WebSocket client.
type Connection struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	LastActivity time.Time
}

func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		logger:      logger,
		connections: make(map[string]*Connection),
		broadcast:   make(chan Event, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// In production, implement proper origin checking
				return true
			},
		},
	}
	go h.run()
	return h
}

// Publish queues an event for broadcast. Non-blocking: a full queue drops
// the event rather than stalling the registry.
func (h *Hub) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- evt:
	default:
		h.logger.Warn("event feed backlog full, dropping event", zap.String("type", evt.Type))
	}
}

// HandleConnection upgrades an HTTP request and attaches it to the feed.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Connection{
		ID:           uuid.New().String(),
		Conn:         conn,
		Send:         make(chan Event, 256),
		LastActivity: time.Now(),
	}
	select {
	case h.register <- c:
	case <-h.stop:
		conn.Close()
		return ErrHubClosed
	}

	go h.readPump(c)
	go h.writePump(c)
	return nil
}

// run owns h.connections; every attach and detach goes through this loop so
// a connection's Send channel is closed exactly once.
func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.connections[c.ID] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.detach(c)
		case evt := <-h.broadcast:
			h.mu.Lock()
			for id, c := range h.connections {
				select {
				case c.Send <- evt:
				default:
					// Slow consumer, detach it.
					delete(h.connections, id)
					close(c.Send)
				}
			}
			h.mu.Unlock()
		case <-h.stop:
			h.mu.Lock()
			for id, c := range h.connections {
				delete(h.connections, id)
				close(c.Send)
				c.Conn.Close()
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) detach(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c.ID]; ok {
		delete(h.connections, c.ID)
		close(c.Send)
	}
}

func (h *Hub) readPump(c *Connection) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stop:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		c.LastActivity = time.Now()
	}
}

func (h *Hub) writePump(c *Connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case evt, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ConnectionCount reports the number of attached clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close shuts the hub down and disconnects every client. It returns once
// the broadcast loop has drained; a later HandleConnection fails with
// ErrHubClosed instead of blocking.
func (h *Hub) Close() {
	close(h.stop)
	<-h.done
}
