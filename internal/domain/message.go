package domain

import "maps"

// Entry is one item of a room log: a chat message or, when Poll is set,
// a poll together with its latest results.
type Entry struct {
	Username  string  `json:"username"`
	Message   *string `json:"message,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
	*Poll
}

func NewTextEntry(username, text string, ts int64) Entry {
	return Entry{Username: username, Message: &text, Timestamp: ts}
}

func (e Entry) IsPoll() bool { return e.Poll != nil }

// Clone copies the entry deep enough that it can be marshalled outside the
// registry lock.
func (e Entry) Clone() Entry {
	out := e
	if e.Message != nil {
		m := *e.Message
		out.Message = &m
	}
	if e.Poll != nil {
		p := *e.Poll
		p.Answers = append([]string(nil), e.Poll.Answers...)
		p.Percentages = maps.Clone(e.Poll.Percentages)
		p.AnswerCounts = maps.Clone(e.Poll.AnswerCounts)
		out.Poll = &p
	}
	return out
}
