package ws

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks the sockets accepted by the server so they can be closed on
// shutdown.
type Hub struct {
	mu    sync.Mutex
	conns map[*wsConn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*wsConn]struct{})}
}

func (h *Hub) Add(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c] = struct{}{}
}

func (h *Hub) Remove(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, c)
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.conns)
}

// CloseAll sends "going away" to every tracked socket and closes it. The
// read loops then unwind and disconnect their users.
func (h *Hub) CloseAll(reason string) {
	h.mu.Lock()
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.CloseWith(websocket.CloseGoingAway, reason)
	}
	slog.Info("ws connections closed", "count", len(conns))
}
