// Package protocol defines the JSON frames exchanged with chat clients.
// Every frame is an object tagged by its "event" field.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event tags.
const (
	EventSendMessage    = "send-message"
	EventAuthRoom       = "auth-room"
	EventCreateChatRoom = "create-chat-room"
	EventGetMessages    = "get-messages"
	EventCurrentRoom    = "current-room"
	EventCreatePolling  = "create-polling"
	EventVotePolling    = "vote-polling"

	EventUpdateUsers     = "update-users"
	EventUpdateChatRooms = "update-chat-rooms"
	EventAuthSuccess     = "auth-success"
	EventAuthFailed      = "auth-failed"
	EventRoomMessages    = "room-messages"
	EventPollingEnded    = "polling-ended"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownEvent   = errors.New("unknown event")
)

// Inbound is a decoded client frame. The set of implementations is closed:
// only the types in this file satisfy it.
type Inbound interface {
	inbound()
}

type SendMessage struct {
	RoomID  int    `json:"roomId"`
	Message string `json:"message"`
}

type AuthRoom struct {
	RoomID   int    `json:"roomId"`
	Password string `json:"password"`
}

type CreateChatRoom struct {
	Name     string  `json:"name"`
	IsPublic bool    `json:"isPublic"`
	Password *string `json:"password,omitempty"`
}

type GetMessages struct {
	RoomID int `json:"roomId"`
}

type CurrentRoom struct{}

type CreatePolling struct {
	RoomID   int      `json:"roomId"`
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
	Duration float64  `json:"duration"`
}

type VotePolling struct {
	RoomID int    `json:"roomId"`
	PollID int    `json:"pollId"`
	Answer string `json:"answer"`
}

func (SendMessage) inbound()    {}
func (AuthRoom) inbound()       {}
func (CreateChatRoom) inbound() {}
func (GetMessages) inbound()    {}
func (CurrentRoom) inbound()    {}
func (CreatePolling) inbound()  {}
func (VotePolling) inbound()    {}

type envelope struct {
	Event string `json:"event"`
}

// Decode parses a raw client frame. Errors wrap ErrMalformedFrame when the
// bytes do not fit the shape of their tag, and ErrUnknownEvent when the tag
// is missing or not one of the client events.
func Decode(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Event {
	case EventSendMessage:
		return decodeAs[SendMessage](env.Event, raw, "roomId")
	case EventAuthRoom:
		return decodeAs[AuthRoom](env.Event, raw, "roomId")
	case EventCreateChatRoom:
		return decodeAs[CreateChatRoom](env.Event, raw)
	case EventGetMessages:
		return decodeAs[GetMessages](env.Event, raw, "roomId")
	case EventCurrentRoom:
		return CurrentRoom{}, nil
	case EventCreatePolling:
		return decodeAs[CreatePolling](env.Event, raw, "roomId")
	case EventVotePolling:
		return decodeAs[VotePolling](env.Event, raw, "roomId", "pollId")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// decodeAs unmarshals raw into T. Every key in required must be present
// and non-null: a missing id would otherwise decode as 0 and address the
// public room.
func decodeAs[T Inbound](event string, raw []byte, required ...string) (Inbound, error) {
	var msg T
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, event, err)
	}
	if len(required) == 0 {
		return msg, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, event, err)
	}
	for _, key := range required {
		v, ok := fields[key]
		if !ok || string(v) == "null" {
			return nil, fmt.Errorf("%w: %s: missing %s", ErrMalformedFrame, event, key)
		}
	}
	return msg, nil
}
