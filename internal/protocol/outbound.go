package protocol

import (
	"encoding/json"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

// Header carries the event tag of an outbound frame. It is filled in by
// Encode.
type Header struct {
	Event string `json:"event"`
}

func (h *Header) setEvent(event string) { h.Event = event }

// Outbound is a server frame. Pass pointers to Encode.
type Outbound interface {
	EventName() string
	setEvent(string)
}

type UpdateUsers struct {
	Header
	Usernames []string `json:"usernames"`
}

type RoomItem struct {
	ID   int         `json:"id"`
	Room domain.Room `json:"room"`
}

type UpdateChatRooms struct {
	Header
	ChatRooms []RoomItem `json:"chatRooms"`
}

type ChatMessage struct {
	Header
	Username string `json:"username"`
	Message  string `json:"message"`
	RoomID   int    `json:"roomId"`
}

type AuthResult struct {
	Header
	RoomID  int  `json:"roomId"`
	success bool
}

type RoomMessages struct {
	Header
	RoomID   int            `json:"roomId"`
	Messages []domain.Entry `json:"messages"`
}

type PollCreated struct {
	Header
	Question  string   `json:"question"`
	Answers   []string `json:"answers"`
	PollID    int      `json:"pollId"`
	Duration  float64  `json:"duration"`
	StartTime int64    `json:"startTime"`
	Username  string   `json:"username"`
}

type PollEnded struct {
	Header
	PollID int `json:"pollId"`
}

type VoteUpdate struct {
	Header
	PollID       int                `json:"pollId"`
	Percentages  map[string]float64 `json:"percentages"`
	TotalVotes   int                `json:"totalVotes"`
	AnswerCounts map[string]int     `json:"answerCounts"`
	Username     string             `json:"username"`
}

func NewAuthResult(roomID int, success bool) *AuthResult {
	return &AuthResult{RoomID: roomID, success: success}
}

func (UpdateUsers) EventName() string     { return EventUpdateUsers }
func (UpdateChatRooms) EventName() string { return EventUpdateChatRooms }
func (ChatMessage) EventName() string     { return EventSendMessage }
func (RoomMessages) EventName() string    { return EventRoomMessages }
func (PollCreated) EventName() string     { return EventCreatePolling }
func (PollEnded) EventName() string       { return EventPollingEnded }
func (VoteUpdate) EventName() string      { return EventVotePolling }

func (a AuthResult) EventName() string {
	if a.success {
		return EventAuthSuccess
	}
	return EventAuthFailed
}

// Encode stamps the event tag and marshals the frame.
func Encode(ev Outbound) ([]byte, error) {
	ev.setEvent(ev.EventName())
	return json.Marshal(ev)
}
