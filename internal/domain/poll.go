package domain

import "maps"

type Poll struct {
	IsPolling bool     `json:"isPolling"`
	PollID    int      `json:"pollId"`
	Question  string   `json:"question"`
	Answers   []string `json:"answers"`
	Duration  float64  `json:"duration"`
	StartTime int64    `json:"startTime"`

	Percentages  map[string]float64 `json:"percentages,omitempty"`
	TotalVotes   int                `json:"totalVotes,omitempty"`
	AnswerCounts map[string]int     `json:"answerCounts,omitempty"`

	closed bool
}

func NewPoll(pollID int, question string, answers []string, duration float64, startTime int64) *Poll {
	if answers == nil {
		answers = []string{}
	}
	return &Poll{
		IsPolling: true,
		PollID:    pollID,
		Question:  question,
		Answers:   answers,
		Duration:  duration,
		StartTime: startTime,
	}
}

func (p *Poll) Close()       { p.closed = true }
func (p *Poll) Closed() bool { return p.closed }

// Apply stores the latest results on the poll so late joiners see them in
// room-messages.
func (p *Poll) Apply(r Results) {
	p.Percentages = maps.Clone(r.Percentages)
	p.TotalVotes = r.TotalVotes
	p.AnswerCounts = maps.Clone(r.AnswerCounts)
}

type Results struct {
	Percentages  map[string]float64
	TotalVotes   int
	AnswerCounts map[string]int
}

// Tally maps a voter to the answer they picked. One vote per voter, the
// last one wins.
type Tally map[string]string

func (t Tally) Cast(username, answer string) {
	t[username] = answer
}

// Results aggregates the tally. Answers nobody picked are absent from both
// maps rather than zero.
func (t Tally) Results() Results {
	r := Results{
		Percentages:  make(map[string]float64),
		TotalVotes:   len(t),
		AnswerCounts: make(map[string]int),
	}
	for _, answer := range t {
		r.AnswerCounts[answer]++
	}
	for answer, count := range r.AnswerCounts {
		r.Percentages[answer] = float64(count) / float64(r.TotalVotes) * 100
	}
	return r
}
