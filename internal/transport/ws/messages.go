package ws

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/cwrk-planet/chat-relay/internal/domain"

	"github.com/gorilla/websocket"
)

var (
	ErrConnClosed    = errors.New("connection closed")
	ErrSendQueueFull = errors.New("send queue full")
)

// Close frames carry at most 125 payload bytes, two of them the code.
const maxCloseReason = 123

// rejectReason is the close reason sent when Connect refuses a client.
func rejectReason(username string, err error) string {
	var reason string
	switch {
	case errors.Is(err, domain.ErrEmptyIdentity):
		reason = "Username is empty"
	case errors.Is(err, domain.ErrDuplicateIdentity):
		reason = fmt.Sprintf("Username %s is already taken", username)
	default:
		reason = err.Error()
	}
	return truncateUTF8(reason, maxCloseReason)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func closeMessage(code int, reason string) []byte {
	return websocket.FormatCloseMessage(code, reason)
}
