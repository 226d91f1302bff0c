package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrWorkoutNotFound indicates that workout was not found
	// (neither by client_id nor by server id) or belongs to another user
	ErrWorkoutNotFound = errors.New("workout not found")
)
