package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/service"

	"github.com/gorilla/websocket"
)

// Registry is the part of the session registry the socket layer drives.
type Registry interface {
	Connect(username string, conn service.Conn) error
	Disconnect(username string)
	HandleFrame(username string, raw []byte)
}

type Config struct {
	ReadLimit      int64
	SendBuffer     int
	PingEvery      time.Duration
	WriteWait      time.Duration
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 << 10
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
	if c.PingEvery <= 0 {
		c.PingEvery = 15 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	return c
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	registry Registry
	cfg      Config
}

func NewServer(hub *Hub, registry Registry, cfg Config) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		hub:      hub,
		registry: registry,
		cfg:      cfg,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// WS endpoint: GET /start_web_socket?username=...
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newWsConn(conn, username, s.cfg)
	if err := s.registry.Connect(username, c); err != nil {
		slog.Info("ws connection rejected", "remote", r.RemoteAddr, "username", username, "err", err)
		_ = c.CloseWith(websocket.ClosePolicyViolation, rejectReason(username, err))
		return
	}

	s.hub.Add(c)
	slog.Debug("ws connection opened", "conn_id", c.id, "username", username, "remote", r.RemoteAddr)

	go c.writePump()
	s.readLoop(c)

	s.hub.Remove(c)
	s.registry.Disconnect(username)
	_ = c.Close()
}

func (s *Server) readLoop(c *wsConn) {
	c.conn.SetReadLimit(s.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingEvery))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			s.onError(c, err)
			return
		}
		s.registry.HandleFrame(c.username, data)
	}
}

func (s *Server) onError(c *wsConn, err error) {
	switch {
	case c.Closed(), errors.Is(err, websocket.ErrCloseSent):
		slog.Debug("ws closed locally", "conn_id", c.id, "username", c.username)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		slog.Warn("ws read error", "conn_id", c.id, "username", c.username, "err", err)
	default:
		slog.Debug("ws closed by peer", "conn_id", c.id, "username", c.username, "err", err)
	}
}

// checkOrigin admits requests without an Origin header (non-browser
// clients) and browsers whose origin is on the allow-list. "*" or an empty
// list admits everyone.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	slog.Warn("ws origin rejected", "origin", origin)
	return false
}
