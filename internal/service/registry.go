package service

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

const DefaultPollIDRange = 1_000_000

// Conn is the outbound side of a client connection. Send must not block:
// it either queues the frame or fails.
type Conn interface {
	Send(data []byte) error
	Closed() bool
}

type Option func(*Registry)

func WithScheduler(s Scheduler) Option {
	return func(r *Registry) { r.scheduler = s }
}

func WithPollIDRange(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.pollIDRange = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithRandom replaces the poll id source. intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(r *Registry) { r.intn = intn }
}

// Registry owns every connected user, room, room log and poll tally. All
// mutations and the fan-out they trigger run under mu, so rooms see their
// events in log order.
type Registry struct {
	mu sync.Mutex

	conns      map[string]Conn
	order      []string
	rooms      map[int]*domain.Room
	logs       map[int][]domain.Entry
	tallies    map[int]domain.Tally
	nextRoomID int

	scheduler   Scheduler
	pollIDRange int
	now         func() time.Time
	intn        func(int) int
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		conns:       make(map[string]Conn),
		rooms:       map[int]*domain.Room{domain.PublicRoomID: domain.NewPublicRoom()},
		logs:        make(map[int][]domain.Entry),
		tallies:     make(map[int]domain.Tally),
		nextRoomID:  domain.PublicRoomID + 1,
		pollIDRange: DefaultPollIDRange,
		now:         time.Now,
		intn:        rand.IntN,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scheduler == nil {
		r.scheduler = NewTimerScheduler()
	}
	return r
}

// Connect registers conn under username and announces the new presence and
// room list to everyone.
func (r *Registry) Connect(username string, conn Conn) error {
	if strings.TrimSpace(username) == "" {
		return domain.ErrEmptyIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.conns[username]; taken {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateIdentity, username)
	}

	r.conns[username] = conn
	r.order = append(r.order, username)
	r.rooms[domain.PublicRoomID].AddUser(username)

	slog.Info("client connected", "username", username, "clients", len(r.conns))

	r.broadcastUsers()
	r.broadcastRooms()
	return nil
}

// Disconnect drops username from the connection table and from every room.
// Private rooms left empty are deleted; when the last client leaves the
// public room starts over. Calling it twice is harmless.
func (r *Registry) Disconnect(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[username]; ok {
		delete(r.conns, username)
		if i := slices.Index(r.order, username); i >= 0 {
			r.order = slices.Delete(r.order, i, i+1)
		}
	}

	for id, room := range r.rooms {
		room.RemoveUser(username)
		if len(room.Users) == 0 && !room.IsPublic {
			r.dropRoom(id)
			slog.Info("room deleted", "room_id", id, "name", room.Name)
		}
	}

	if len(r.conns) == 0 {
		r.dropRoom(domain.PublicRoomID)
		r.rooms[domain.PublicRoomID] = domain.NewPublicRoom()
		slog.Info("public room reset")
	}

	slog.Info("client disconnected", "username", username, "clients", len(r.conns))

	r.broadcastUsers()
	r.broadcastRooms()
}

// dropRoom forgets a room, its log and the tallies of the polls posted in it.
func (r *Registry) dropRoom(id int) {
	for _, e := range r.logs[id] {
		if e.IsPoll() {
			delete(r.tallies, e.PollID)
		}
	}
	delete(r.logs, id)
	delete(r.rooms, id)
}

func (r *Registry) isConnected(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.conns[username]
	return ok
}

// Close stops pending poll-close tasks.
func (r *Registry) Close() {
	r.scheduler.Stop()
}

type RoomStats struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	IsPublic bool     `json:"isPublic"`
	Users    []string `json:"users"`
	Messages int      `json:"messages"`
}

type Snapshot struct {
	Users        []string    `json:"users"`
	Rooms        []RoomStats `json:"rooms"`
	Polls        int         `json:"polls"`
	PendingPolls int         `json:"pendingPolls"`
}

// Snapshot returns a copy of the registry state for monitoring. Room
// passwords are left out.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Users:        slices.Clone(r.order),
		Rooms:        make([]RoomStats, 0, len(r.rooms)),
		PendingPolls: r.scheduler.Pending(),
	}
	if s.Users == nil {
		s.Users = []string{}
	}
	for _, id := range r.roomIDs() {
		room := r.rooms[id].Clone()
		s.Rooms = append(s.Rooms, RoomStats{
			ID:       id,
			Name:     room.Name,
			IsPublic: room.IsPublic,
			Users:    room.Users,
			Messages: len(r.logs[id]),
		})
		for _, e := range r.logs[id] {
			if e.IsPoll() {
				s.Polls++
			}
		}
	}
	return s
}

func (r *Registry) roomIDs() []int {
	ids := make([]int, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
