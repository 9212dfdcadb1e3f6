package service

import (
	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/protocol"
)

// Send appends a message to the room log and relays it to the room members.
// Only members may post to a private room.
func (r *Registry) Send(roomID int, username, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if !room.CanPost(username) {
		return domain.ErrNotMember
	}

	r.logs[roomID] = append(r.logs[roomID], domain.NewTextEntry(username, text, r.now().UnixMilli()))

	r.broadcastToRoom(roomID, &protocol.ChatMessage{
		Username: username,
		Message:  text,
		RoomID:   roomID,
	})
	return nil
}

// ListMessages sends the room log to requester and returns a copy of it.
// Unknown rooms and rooms nobody has written to yield an empty log.
func (r *Registry) ListMessages(roomID int, requester string) []domain.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]domain.Entry, 0, len(r.logs[roomID]))
	for _, e := range r.logs[roomID] {
		entries = append(entries, e.Clone())
	}

	r.sendTo(requester, &protocol.RoomMessages{RoomID: roomID, Messages: entries})
	return entries
}
