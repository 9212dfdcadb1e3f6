package service

import (
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/cwrk-planet/chat-relay/internal/protocol"
)

// HandleFrame decodes one client frame and runs the matching handler.
// Undecodable frames, unknown events and rejected requests are logged and
// dropped; the sender gets no error back.
func (r *Registry) HandleFrame(username string, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("frame handler panic",
				"username", username,
				"panic", rec,
				"stack", string(debug.Stack()))
		}
	}()

	if !r.isConnected(username) {
		slog.Debug("frame from unregistered client dropped", "username", username)
		return
	}

	msg, err := protocol.Decode(raw)
	switch {
	case errors.Is(err, protocol.ErrUnknownEvent):
		slog.Debug("unknown event ignored", "username", username, "err", err)
		return
	case err != nil:
		slog.Warn("invalid frame dropped", "username", username, "err", err)
		return
	}

	switch m := msg.(type) {
	case protocol.SendMessage:
		err = r.Send(m.RoomID, username, m.Message)
	case protocol.AuthRoom:
		_, err = r.JoinPrivateRoom(m.RoomID, m.Password, username)
	case protocol.CreateChatRoom:
		r.CreateRoom(m.Name, m.IsPublic, m.Password, username)
	case protocol.GetMessages:
		r.ListMessages(m.RoomID, username)
	case protocol.CurrentRoom:
		r.CurrentRooms()
	case protocol.CreatePolling:
		_, err = r.CreatePoll(m.RoomID, username, m.Question, m.Answers, m.Duration)
	case protocol.VotePolling:
		_, err = r.Vote(m.RoomID, m.PollID, username, m.Answer)
	}

	if err != nil {
		slog.Debug("request dropped", "username", username, "err", err)
	}
}
