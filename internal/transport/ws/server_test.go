package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv      *httptest.Server
	hub      *Hub
	registry *service.Registry
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	reg := service.NewRegistry()
	hub := NewHub()
	ws := NewServer(hub, reg, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/start_web_socket", ws.HandleWS)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		hub.CloseAll("test done")
		srv.Close()
		reg.Close()
	})
	return &testEnv{srv: srv, hub: hub, registry: reg}
}

func (e *testEnv) dial(t *testing.T, username string) *websocket.Conn {
	t.Helper()

	u := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/start_web_socket?username=" + url.QueryEscape(username)
	c, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// readEvent reads frames until one tagged event arrives.
func readEvent(t *testing.T, c *websocket.Conn, event string) map[string]any {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, c.SetReadDeadline(deadline))
		_, data, err := c.ReadMessage()
		require.NoError(t, err, "waiting for %q", event)

		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		if frame["event"] == event {
			return frame
		}
	}
}

func readClose(t *testing.T, c *websocket.Conn) *websocket.CloseError {
	t.Helper()

	require.NoError(t, c.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, _, err := c.ReadMessage()
		if err == nil {
			continue
		}
		var ce *websocket.CloseError
		require.ErrorAs(t, err, &ce)
		return ce
	}
}

func writeFrame(t *testing.T, c *websocket.Conn, frame map[string]any) {
	t.Helper()
	require.NoError(t, c.WriteJSON(frame))
}

func TestServer_ChatBetweenTwoClients(t *testing.T) {
	env := newTestEnv(t, Config{})

	alice := env.dial(t, "alice")
	readEvent(t, alice, "update-users")

	bob := env.dial(t, "bob")
	users := readEvent(t, alice, "update-users")
	assert.Equal(t, []any{"alice", "bob"}, users["usernames"])
	readEvent(t, bob, "update-chat-rooms")

	writeFrame(t, alice, map[string]any{"event": "send-message", "roomId": 0, "message": "hi"})

	for _, c := range []*websocket.Conn{alice, bob} {
		msg := readEvent(t, c, "send-message")
		assert.Equal(t, "alice", msg["username"])
		assert.Equal(t, "hi", msg["message"])
		assert.EqualValues(t, 0, msg["roomId"])
	}

	writeFrame(t, bob, map[string]any{"event": "get-messages", "roomId": 0})
	history := readEvent(t, bob, "room-messages")
	entries, ok := history["messages"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "hi", entries[0].(map[string]any)["message"])
}

func TestServer_DisconnectUpdatesPresence(t *testing.T) {
	env := newTestEnv(t, Config{})

	alice := env.dial(t, "alice")
	bob := env.dial(t, "bob")
	readEvent(t, bob, "update-users")

	require.NoError(t, alice.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	assert.Eventually(t, func() bool {
		return len(env.registry.Snapshot().Users) == 1
	}, 3*time.Second, 10*time.Millisecond)

	for {
		users := readEvent(t, bob, "update-users")
		if len(users["usernames"].([]any)) == 1 {
			assert.Equal(t, []any{"bob"}, users["usernames"])
			break
		}
	}
}

func TestServer_RejectsBadUsernames(t *testing.T) {
	env := newTestEnv(t, Config{})

	first := env.dial(t, "alice")
	readEvent(t, first, "update-users")

	tests := []struct {
		name     string
		username string
		reason   string
	}{
		{name: "empty", username: "", reason: "Username is empty"},
		{name: "blank", username: "   ", reason: "Username is empty"},
		{name: "duplicate", username: "alice", reason: "Username alice is already taken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := env.dial(t, tt.username)
			ce := readClose(t, c)
			assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
			assert.Equal(t, tt.reason, ce.Text)
		})
	}

	assert.Equal(t, []string{"alice"}, env.registry.Snapshot().Users)
}

func TestServer_MalformedFrameKeepsConnection(t *testing.T) {
	env := newTestEnv(t, Config{})

	alice := env.dial(t, "alice")
	readEvent(t, alice, "update-chat-rooms")

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("{not json")))
	writeFrame(t, alice, map[string]any{"event": "no-such-event"})
	writeFrame(t, alice, map[string]any{"event": "current-room"})

	readEvent(t, alice, "update-chat-rooms")
}

func TestHub_CloseAllSendsGoingAway(t *testing.T) {
	env := newTestEnv(t, Config{})

	alice := env.dial(t, "alice")
	readEvent(t, alice, "update-users")
	require.Eventually(t, func() bool { return env.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	env.hub.CloseAll("server shutting down")

	ce := readClose(t, alice)
	assert.Equal(t, websocket.CloseGoingAway, ce.Code)
	assert.Equal(t, "server shutting down", ce.Text)

	assert.Eventually(t, func() bool {
		return env.hub.Len() == 0 && len(env.registry.Snapshot().Users) == 0
	}, 3*time.Second, 10*time.Millisecond)
}

func TestServer_CheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no origin header", allowed: []string{"https://chat.example"}, origin: "", want: true},
		{name: "empty allow-list", allowed: nil, origin: "https://evil.example", want: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://evil.example", want: true},
		{name: "listed", allowed: []string{"https://chat.example/"}, origin: "https://Chat.example", want: true},
		{name: "not listed", allowed: []string{"https://chat.example"}, origin: "https://evil.example", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(NewHub(), service.NewRegistry(), Config{AllowedOrigins: tt.allowed})
			r := httptest.NewRequest(http.MethodGet, "/start_web_socket?username=a", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, s.checkOrigin(r))
		})
	}
}
