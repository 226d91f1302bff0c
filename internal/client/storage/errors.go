package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrWorkoutNotFound indicates that workout was not found
	ErrWorkoutNotFound = errors.New("workout not found")

	// ErrExerciseNotFound indicates that workout exercise was not found
	ErrExerciseNotFound = errors.New("workout exercise not found")

	// ErrSetNotFound indicates that workout set was not found
	ErrSetNotFound = errors.New("workout set not found")

	// ErrMutationNotFound indicates that queue record was not found
	ErrMutationNotFound = errors.New("mutation not found")
)
