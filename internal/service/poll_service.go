package service

import (
	"log/slog"
	"math"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/protocol"
)

// CreatePoll posts a poll into the room log, announces it to the room and
// schedules its end after duration minutes. Poll ids are drawn at random
// and may collide with another open poll.
func (r *Registry) CreatePoll(roomID int, username, question string, answers []string, duration float64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return 0, domain.ErrRoomNotFound
	}
	if !room.CanPost(username) {
		return 0, domain.ErrNotMember
	}

	pollID := r.intn(r.pollIDRange)
	startTime := r.now().UnixMilli()
	poll := domain.NewPoll(pollID, question, answers, duration, startTime)
	r.logs[roomID] = append(r.logs[roomID], domain.Entry{Username: username, Poll: poll})

	slog.Info("poll created", "room_id", roomID, "poll_id", pollID, "username", username, "duration_min", duration)

	r.broadcastToRoom(roomID, &protocol.PollCreated{
		Question:  question,
		Answers:   poll.Answers,
		PollID:    pollID,
		Duration:  duration,
		StartTime: startTime,
		Username:  username,
	})

	r.scheduler.Schedule(TaskKey{RoomID: roomID, PollID: pollID}, pollDuration(duration), func() {
		r.endPoll(roomID, pollID)
	})
	return pollID, nil
}

// pollDuration converts minutes to a timer delay, saturating at the largest
// representable duration.
func pollDuration(minutes float64) time.Duration {
	if minutes <= 0 || math.IsNaN(minutes) {
		return 0
	}
	ns := minutes * float64(time.Minute)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// endPoll marks the poll closed and tells the room. The room or the poll
// may be gone by now.
func (r *Registry) endPoll(roomID, pollID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if poll := r.findPoll(roomID, pollID); poll != nil {
		poll.Close()
	}
	if _, ok := r.rooms[roomID]; !ok {
		slog.Debug("poll ended in deleted room", "room_id", roomID, "poll_id", pollID)
		return
	}

	slog.Info("poll ended", "room_id", roomID, "poll_id", pollID)
	r.broadcastToRoom(roomID, &protocol.PollEnded{PollID: pollID})
}

// Vote records username's answer, replacing any earlier one, and pushes the
// recomputed results to the room. Closed polls still accept votes and the
// answer is not checked against the poll's options.
func (r *Registry) Vote(roomID, pollID int, username, answer string) (domain.Results, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; !ok {
		return domain.Results{}, domain.ErrRoomNotFound
	}

	tally, ok := r.tallies[pollID]
	if !ok {
		tally = domain.Tally{}
		r.tallies[pollID] = tally
	}
	tally.Cast(username, answer)
	results := tally.Results()

	if poll := r.findPoll(roomID, pollID); poll != nil {
		if poll.Closed() {
			slog.Debug("vote after poll end", "room_id", roomID, "poll_id", pollID, "username", username)
		}
		poll.Apply(results)
	}

	r.broadcastToRoom(roomID, &protocol.VoteUpdate{
		PollID:       pollID,
		Percentages:  results.Percentages,
		TotalVotes:   results.TotalVotes,
		AnswerCounts: results.AnswerCounts,
		Username:     username,
	})
	return results, nil
}

func (r *Registry) findPoll(roomID, pollID int) *domain.Poll {
	for _, e := range r.logs[roomID] {
		if e.IsPoll() && e.PollID == pollID {
			return e.Poll
		}
	}
	return nil
}
