package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rook-computer/interlace/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 512

	sendBuffer      = 64
	broadcastBuffer = 256
)

// Event is one message on the event stream.
type Event struct {
	Kind   string      `json:"kind"`
	Client string      `json:"client,omitempty"`
	Time   time.Time   `json:"time"`
	Data   interface{} `json:"data,omitempty"`
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans shell events out to websocket clients. Publish never blocks:
// when the hub falls behind, events are dropped and slow clients are cut off.
type Hub struct {
	Logger  Logger
	Metrics *metrics.Metrics
	// AllowAnyOrigin disables the same-origin check for dev setups.
	AllowAnyOrigin bool

	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	count      atomic.Int64
	dropped    atomic.Int64
}

func NewHub(logger Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Hub{
		Logger:     logger,
		Metrics:    m,
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is done, then closes every client.
// A hub runs once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)
			h.Metrics.ClientConnected()
			h.Logger.Infof("hub", "client %s connected (%d total)", c.id, len(h.clients))
		case c := <-h.unregister:
			h.remove(c)
		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.Logger.Errorf("hub", "client %s too slow, dropping", c.id)
					h.remove(c)
				}
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
	h.Metrics.ClientDisconnected()
	h.Logger.Infof("hub", "client %s disconnected (%d remaining)", c.id, len(h.clients))
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.count.Load()) }

// Publish sends an event to every connected client.
func (h *Hub) Publish(kind string, data interface{}) {
	payload, err := json.Marshal(Event{Kind: kind, Time: time.Now().UTC(), Data: data})
	if err != nil {
		h.Logger.Errorf("hub", "marshal %s event: %v", kind, err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		if h.dropped.Add(1)%100 == 1 {
			h.Logger.Errorf("hub", "broadcast queue full, dropping %s events", kind)
		}
	}
}

// ServeWS upgrades the request and streams events to it. The first message
// carries the client id.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if h.AllowAnyOrigin {
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Errorf("hub", "websocket upgrade failed: %v", err)
		return
	}

	c := &client{id: uuid.NewString(), hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	hello, _ := json.Marshal(Event{Kind: "hello", Client: c.id, Time: time.Now().UTC()})
	c.send <- hello

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump discards client messages and notices disconnects.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
