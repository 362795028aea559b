package http

import (
	"sync"

	"quizroom-service/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const sendBuffer = 64

// client is one websocket connection. Events are queued on send and drained by the write pump.
type client struct {
	id   string
	conn *websocket.Conn
	send chan domain.Event
	done chan struct{}
	once sync.Once
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan domain.Event, sendBuffer),
		done: make(chan struct{}),
	}
}

// close stops the write pump and tears down the socket. Safe to call more than once.
func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub maps connection ids to live connections and implements app.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     log,
	}
}

// Send queues event for connID without blocking. A connection whose queue is full is too slow
// to keep up with its room and gets disconnected.
func (h *Hub) Send(connID string, event domain.Event) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case <-c.done:
	case c.send <- event:
	default:
		h.log.Warn().Str("conn", connID).Str("event", event.Type).Msg("send queue full, closing connection")
		h.unregister(c)
		c.close()
	}
}

// Connections returns the number of registered connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
	}
}
