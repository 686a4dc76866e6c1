// Package realtime streams new honeypot engagements to connected admin
// clients over WebSocket.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmerrifield20/honeypot/internal/interaction"
	"github.com/jmerrifield20/honeypot/internal/threat"
	"go.uber.org/zap"
)

// MaxClients is the default limit on concurrent stream connections.
const MaxClients = 100

var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

// Subscription filters what a client receives. Clients update it by sending
// a JSON text frame, e.g. {"min_level":"MEDIUM"}.
type Subscription struct {
	MinLevel string `json:"min_level"`
}

// Event is the frame written to clients.
type Event struct {
	Type      string             `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Data      interaction.Record `json:"data"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	mu   sync.RWMutex
	sub  Subscription
}

// Hub fans out records to WebSocket clients.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan interaction.Record
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	done       chan struct{}
	maxClients int
	onCount    func(int)
	logger     *zap.Logger
}

// NewHub creates a Hub. Call Run to start it.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan interaction.Record, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		maxClients: MaxClients,
		onCount:    func(int) {},
		logger:     logger,
	}
}

// OnClientCount registers fn to be called whenever the number of connected
// clients changes. Must be called before Run.
func (h *Hub) OnClientCount(fn func(int)) {
	h.onCount = fn
}

// SetMaxClients overrides MaxClients. Must be called before Run.
func (h *Hub) SetMaxClients(n int) {
	h.maxClients = n
}

// Run is the hub's main loop. It returns when ctx is cancelled, closing
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.onCount(0)
			h.logger.Info("realtime hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.onCount(n)
			h.logger.Info("stream client connected", zap.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.onCount(n)
			h.logger.Info("stream client disconnected", zap.Int("clients", n))

		case rec := <-h.broadcast:
			frame, err := json.Marshal(Event{Type: "interaction", Timestamp: time.Now().UTC(), Data: rec})
			if err != nil {
				h.logger.Error("marshal stream event", zap.Error(err))
				continue
			}

			h.mu.Lock()
			for c := range h.clients {
				if !c.wants(rec) {
					continue
				}
				select {
				case c.send <- frame:
				default:
					// Slow consumer; drop it rather than stall the fan-out.
					close(c.send)
					delete(h.clients, c)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.onCount(n)
		}
	}
}

// Publish queues rec for delivery. It never blocks; when the queue is full
// the record is dropped from the stream (it is still in the log).
func (h *Hub) Publish(rec interaction.Record) {
	select {
	case h.broadcast <- rec:
	default:
		h.logger.Warn("stream queue full, dropping event", zap.String("id", rec.ID))
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request to a WebSocket and attaches it to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	if h.Clients() >= h.maxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 64)}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// wants reports whether rec passes the client's filter.
func (c *client) wants(rec interaction.Record) bool {
	c.mu.RLock()
	floor := c.sub.MinLevel
	c.mu.RUnlock()
	if floor == "" {
		return true
	}
	return levelRank(rec.RiskLevel) >= levelRank(floor)
}

func levelRank(level string) int {
	switch level {
	case threat.LevelHigh:
		return 3
	case threat.LevelMedium:
		return 2
	case threat.LevelLow:
		return 1
	default:
		return 0
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				c.hub.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var sub Subscription
		if err := json.Unmarshal(msg, &sub); err == nil {
			c.mu.Lock()
			c.sub = sub
			c.mu.Unlock()
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.logger.Debug("websocket write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
