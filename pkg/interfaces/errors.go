package interfaces

import "errors"

// Sentinel errors shared across store implementations.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrRoomNotFound  = errors.New("room not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrStoryNotFound = errors.New("story not found")
)
