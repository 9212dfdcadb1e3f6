package service

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errQueueFull = errors.New("queue full")

type mockConn struct {
	mu      sync.Mutex
	frames  [][]byte
	closed  bool
	sendErr error
}

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.frames = append(m.frames, data)
	return nil
}

func (m *mockConn) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockConn) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

func (m *mockConn) events(t *testing.T) []map[string]any {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]map[string]any, 0, len(m.frames))
	for _, f := range m.frames {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

// eventsOf returns the frames carrying the given event tag, oldest first.
func (m *mockConn) eventsOf(t *testing.T, event string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ev := range m.events(t) {
		if ev["event"] == event {
			out = append(out, ev)
		}
	}
	return out
}

func (m *mockConn) last(t *testing.T, event string) map[string]any {
	t.Helper()
	evs := m.eventsOf(t, event)
	require.NotEmpty(t, evs, "no %s frame received", event)
	return evs[len(evs)-1]
}

type fakeTask struct {
	key   TaskKey
	after time.Duration
	fn    func()
}

type fakeScheduler struct {
	mu      sync.Mutex
	tasks   []fakeTask
	stopped bool
}

func (f *fakeScheduler) Schedule(key TaskKey, after time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.tasks = append(f.tasks, fakeTask{key: key, after: after, fn: fn})
}

func (f *fakeScheduler) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *fakeScheduler) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.tasks = nil
}

func (f *fakeScheduler) scheduled() []fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeTask(nil), f.tasks...)
}

// fireAll runs every pending task as if its timer expired.
func (f *fakeScheduler) fireAll() {
	f.mu.Lock()
	tasks := f.tasks
	f.tasks = nil
	f.mu.Unlock()

	for _, task := range tasks {
		task.fn()
	}
}

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *fakeScheduler) {
	t.Helper()
	sched := &fakeScheduler{}
	fixed := time.UnixMilli(1_700_000_000_000)
	base := []Option{
		WithScheduler(sched),
		WithClock(func() time.Time { return fixed }),
	}
	r := NewRegistry(append(base, opts...)...)
	t.Cleanup(r.Close)
	return r, sched
}

func connect(t *testing.T, r *Registry, username string) *mockConn {
	t.Helper()
	conn := &mockConn{}
	require.NoError(t, r.Connect(username, conn))
	return conn
}

func usernames(ev map[string]any) []string {
	raw, _ := ev["usernames"].([]any)
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		out = append(out, u.(string))
	}
	return out
}

// roomsByID flattens an update-chat-rooms frame into id -> room record.
func roomsByID(ev map[string]any) map[int]map[string]any {
	out := make(map[int]map[string]any)
	items, _ := ev["chatRooms"].([]any)
	for _, it := range items {
		item := it.(map[string]any)
		out[int(item["id"].(float64))] = item["room"].(map[string]any)
	}
	return out
}

func roomUsers(room map[string]any) []string {
	raw, _ := room["users"].([]any)
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		out = append(out, u.(string))
	}
	return out
}
