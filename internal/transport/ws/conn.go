package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wsConn is one client socket. Outbound frames go through a buffered queue
// drained by writePump, so a slow peer never blocks the registry.
type wsConn struct {
	id       string
	username string
	conn     *websocket.Conn

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	writeWait time.Duration
	pingEvery time.Duration
}

func newWsConn(c *websocket.Conn, username string, cfg Config) *wsConn {
	return &wsConn{
		id:        uuid.NewString(),
		username:  username,
		conn:      c,
		send:      make(chan []byte, cfg.SendBuffer),
		closed:    make(chan struct{}),
		writeWait: cfg.WriteWait,
		pingEvery: cfg.PingEvery,
	}
}

func (c *wsConn) Send(data []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *wsConn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// CloseWith sends a close frame before dropping the socket.
func (c *wsConn) CloseWith(code int, reason string) error {
	if c.conn != nil && !c.Closed() {
		deadline := time.Now().Add(c.writeWait)
		if err := c.conn.WriteControl(websocket.CloseMessage, closeMessage(code, reason), deadline); err != nil {
			slog.Debug("ws close frame failed", "conn_id", c.id, "err", err)
		}
	}
	return c.Close()
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("ws write failed", "conn_id", c.id, "username", c.username, "err", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				slog.Debug("ws ping failed", "conn_id", c.id, "username", c.username, "err", err)
				return
			}
		case <-c.closed:
			return
		}
	}
}
