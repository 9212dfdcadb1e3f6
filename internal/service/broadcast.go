package service

import (
	"log/slog"
	"slices"

	"github.com/cwrk-planet/chat-relay/internal/protocol"
)

// BroadcastAll sends ev to every open connection.
func (r *Registry) BroadcastAll(ev protocol.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastAll(ev)
}

// BroadcastToRoom sends ev to the members of roomID that are connected.
func (r *Registry) BroadcastToRoom(roomID int, ev protocol.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastToRoom(roomID, ev)
}

func (r *Registry) broadcastAll(ev protocol.Outbound) {
	data, ok := encode(ev)
	if !ok {
		return
	}
	for _, username := range r.order {
		r.deliver(username, r.conns[username], data)
	}
}

func (r *Registry) broadcastToRoom(roomID int, ev protocol.Outbound) {
	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	data, ok := encode(ev)
	if !ok {
		return
	}
	for _, username := range room.Users {
		conn, ok := r.conns[username]
		if !ok {
			slog.Warn("room member not connected", "room_id", roomID, "username", username)
			continue
		}
		r.deliver(username, conn, data)
	}
}

func (r *Registry) sendTo(username string, ev protocol.Outbound) {
	conn, ok := r.conns[username]
	if !ok {
		slog.Debug("reply to unknown client dropped", "username", username, "event", ev.EventName())
		return
	}
	data, ok := encode(ev)
	if !ok {
		return
	}
	r.deliver(username, conn, data)
}

func (r *Registry) deliver(username string, conn Conn, data []byte) {
	if conn == nil || conn.Closed() {
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Warn("send failed", "username", username, "err", err)
	}
}

func encode(ev protocol.Outbound) ([]byte, bool) {
	data, err := protocol.Encode(ev)
	if err != nil {
		slog.Error("encode event failed", "event", ev.EventName(), "err", err)
		return nil, false
	}
	return data, true
}

func (r *Registry) broadcastUsers() {
	r.broadcastAll(&protocol.UpdateUsers{Usernames: slices.Clone(r.order)})
}

func (r *Registry) broadcastRooms() {
	items := make([]protocol.RoomItem, 0, len(r.rooms))
	for _, id := range r.roomIDs() {
		items = append(items, protocol.RoomItem{ID: id, Room: r.rooms[id].Clone()})
	}
	r.broadcastAll(&protocol.UpdateChatRooms{ChatRooms: items})
}
