package service

import (
	"sync"
	"time"
)

// TaskKey identifies a poll-close task.
type TaskKey struct {
	RoomID int
	PollID int
}

// Scheduler runs deferred poll-close tasks.
type Scheduler interface {
	Schedule(key TaskKey, after time.Duration, fn func())
	// Pending reports how many tasks have not fired yet.
	Pending() int
	// Stop cancels every pending task. Later Schedule calls are ignored.
	Stop()
}

// TimerScheduler is a Scheduler backed by time.AfterFunc. Keys may repeat:
// two polls that drew the same id in the same room both get their task.
type TimerScheduler struct {
	mu      sync.Mutex
	tasks   map[TaskKey]map[*time.Timer]struct{}
	stopped bool
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{tasks: make(map[TaskKey]map[*time.Timer]struct{})}
}

func (s *TimerScheduler) Schedule(key TaskKey, after time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if after < 0 {
		after = 0
	}

	var t *time.Timer
	t = time.AfterFunc(after, func() {
		s.mu.Lock()
		set := s.tasks[key]
		_, live := set[t]
		delete(set, t)
		if len(set) == 0 {
			delete(s.tasks, key)
		}
		s.mu.Unlock()

		if live {
			fn()
		}
	})

	set, ok := s.tasks[key]
	if !ok {
		set = make(map[*time.Timer]struct{})
		s.tasks[key] = set
	}
	set[t] = struct{}{}
}

func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, set := range s.tasks {
		n += len(set)
	}
	return n
}

func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, set := range s.tasks {
		for t := range set {
			t.Stop()
		}
		delete(s.tasks, key)
	}
}
