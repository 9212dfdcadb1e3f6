package domain

import "errors"

var (
	ErrEmptyIdentity     = errors.New("username is empty")
	ErrDuplicateIdentity = errors.New("username is already taken")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomIsPublic      = errors.New("room is public")
	ErrNotMember         = errors.New("user not in the room")
)
