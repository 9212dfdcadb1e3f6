package service

import (
	"crypto/subtle"
	"log/slog"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/protocol"
)

type AuthResult int

const (
	// AuthIgnored means the request was dropped without a reply.
	AuthIgnored AuthResult = iota
	AuthSucceeded
	AuthFailed
)

// CreateRoom creates a room with creator as its first member and returns
// the new room id. Names need not be unique.
func (r *Registry) CreateRoom(name string, isPublic bool, password *string, creator string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextRoomID
	r.nextRoomID++

	room := &domain.Room{Name: name, IsPublic: isPublic, Users: []string{creator}}
	if password != nil {
		pw := *password
		room.Password = &pw
	}
	r.rooms[id] = room

	slog.Info("room created", "room_id", id, "name", name, "public", isPublic, "creator", creator)

	r.broadcastRooms()
	return id
}

// JoinPrivateRoom admits username to a private room when password matches.
// The requester alone is told the outcome; a successful join also refreshes
// everyone's room list.
func (r *Registry) JoinPrivateRoom(roomID int, password, username string) (AuthResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return AuthIgnored, domain.ErrRoomNotFound
	}
	if room.IsPublic {
		return AuthIgnored, domain.ErrRoomIsPublic
	}

	if !passwordMatches(room.Password, password) {
		slog.Info("room auth failed", "room_id", roomID, "username", username)
		r.sendTo(username, protocol.NewAuthResult(roomID, false))
		return AuthFailed, nil
	}

	room.AddUser(username)
	r.sendTo(username, protocol.NewAuthResult(roomID, true))
	r.broadcastRooms()
	return AuthSucceeded, nil
}

// A private room created without a password cannot be joined.
func passwordMatches(want *string, got string) bool {
	if want == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*want), []byte(got)) == 1
}

// CurrentRooms re-sends the room list to every client.
func (r *Registry) CurrentRooms() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastRooms()
}
