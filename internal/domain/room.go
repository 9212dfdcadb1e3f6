package domain

import "slices"

const (
	PublicRoomID   = 0
	PublicRoomName = "Public Room"
)

// Room is the record sent to clients inside update-chat-rooms. Password is
// broadcast as-is; clients filter private rooms on their side.
type Room struct {
	Name     string   `json:"name"`
	IsPublic bool     `json:"isPublic"`
	Users    []string `json:"users"`
	Password *string  `json:"password,omitempty"`
}

func NewPublicRoom() *Room {
	return &Room{Name: PublicRoomName, IsPublic: true, Users: []string{}}
}

func (r *Room) HasUser(username string) bool {
	return slices.Contains(r.Users, username)
}

// AddUser appends username unless it is already a member. Reports whether
// the member set changed.
func (r *Room) AddUser(username string) bool {
	if r.HasUser(username) {
		return false
	}
	r.Users = append(r.Users, username)
	return true
}

func (r *Room) RemoveUser(username string) bool {
	i := slices.Index(r.Users, username)
	if i < 0 {
		return false
	}
	r.Users = slices.Delete(r.Users, i, i+1)
	return true
}

// CanPost reports whether username may send messages or polls to the room.
func (r *Room) CanPost(username string) bool {
	return r.IsPublic || r.HasUser(username)
}

func (r *Room) Clone() Room {
	out := Room{
		Name:     r.Name,
		IsPublic: r.IsPublic,
		Users:    slices.Clone(r.Users),
	}
	if out.Users == nil {
		out.Users = []string{}
	}
	if r.Password != nil {
		pw := *r.Password
		out.Password = &pw
	}
	return out
}
