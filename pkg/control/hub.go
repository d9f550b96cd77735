package control

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is the envelope for everything pushed over the event stream.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// StatePayload carries a connection state transition.
type StatePayload struct {
	State string `json:"state"`
}

var errClientGone = errors.New("control: client not registered")

// Hub tracks connected WebSocket clients and broadcasts events to them.
// Writes to each connection are serialized through a per-client mutex;
// gorilla/websocket allows only one concurrent writer per connection.
type Hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{log: log, clients: make(map[*websocket.Conn]*sync.Mutex)}
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = &sync.Mutex{}
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
}

// Send writes ev to one registered client, holding its write lock.
func (h *Hub) Send(conn *websocket.Conn, ev Event) error {
	h.mu.Lock()
	wmu := h.clients[conn]
	h.mu.Unlock()
	if wmu == nil {
		return errClientGone
	}
	return h.write(conn, wmu, ev)
}

// Broadcast sends ev to every client. A client that cannot be written to
// within the deadline is dropped; events carry state, not history, so a
// slow client only misses transitions.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	locks := make([]*sync.Mutex, 0, len(h.clients))
	for c, wmu := range h.clients {
		conns = append(conns, c)
		locks = append(locks, wmu)
	}
	h.mu.Unlock()

	var failed []*websocket.Conn
	for i, c := range conns {
		if err := h.write(c, locks[i], ev); err != nil {
			h.log.Debug("dropping event stream client", zap.Error(err))
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		h.Remove(c)
	}
}

func (h *Hub) write(conn *websocket.Conn, wmu *sync.Mutex, ev Event) error {
	wmu.Lock()
	defer wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	return conn.WriteJSON(ev)
}

// CloseAll disconnects every client, for shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
