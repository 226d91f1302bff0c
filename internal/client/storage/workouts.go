package storage

import (
	"context"

	"github.com/nvoisin/gymsync/internal/models"
)

// NewWorkout описывает создаваемую тренировку.
// ClientID и ServerID заполняются только при применении серверных событий;
// для локальных созданий client_id генерирует само хранилище.
type NewWorkout struct {
	Title    string
	UserID   string
	Status   string
	ClientID string
	ServerID string
}

// NewExercise описывает создаваемое упражнение
type NewExercise struct {
	WorkoutID   uint64
	ExerciseID  string
	OrderIndex  int
	PlannedSets *int
	ClientID    string
	ServerID    string
}

// NewSet описывает создаваемый подход
type NewSet struct {
	WorkoutExerciseID uint64
	Reps              int
	Weight            *float64
	RPE               *float64
	DoneAt            *int64
	ClientID          string
	ServerID          string
}

// WorkoutStorage defines the local store contract consumed by the sync engine.
// Движок — единственный источник записей; UI читает то же хранилище напрямую.
type WorkoutStorage interface {
	// CreateWorkout creates a workout and returns it with assigned
	// local_id and client_id
	CreateWorkout(ctx context.Context, w NewWorkout) (*models.Workout, error)

	// GetWorkout retrieves a workout by local_id
	// Returns ErrWorkoutNotFound if it doesn't exist
	GetWorkout(ctx context.Context, localID uint64) (*models.Workout, error)

	// ListWorkouts returns all workouts with their exercises and sets
	ListWorkouts(ctx context.Context) ([]*models.WorkoutWithRelations, error)

	// UpdateWorkoutTitle updates the title of a workout
	UpdateWorkoutTitle(ctx context.Context, localID uint64, title string) error

	// UpdateWorkoutStatus updates the status of a workout
	UpdateWorkoutStatus(ctx context.Context, localID uint64, status string) error

	// DeleteWorkout removes a workout together with its exercises and sets
	DeleteWorkout(ctx context.Context, localID uint64) error

	// CreateExercise adds an exercise to a workout
	CreateExercise(ctx context.Context, e NewExercise) (*models.WorkoutExercise, error)

	// UpdateExercisePlan updates planned sets of an exercise
	UpdateExercisePlan(ctx context.Context, localID uint64, plannedSets *int) error

	// DeleteExercise removes an exercise and its sets
	DeleteExercise(ctx context.Context, localID uint64) error

	// CreateSet adds a set to an exercise
	CreateSet(ctx context.Context, s NewSet) (*models.WorkoutSet, error)

	// UpdateSet applies a partial update to a set
	UpdateSet(ctx context.Context, localID uint64, updates SetUpdates) error

	// DeleteSet removes a set
	DeleteSet(ctx context.Context, localID uint64) error

	// DeleteWorkoutGraph removes all exercises and sets of a workout,
	// keeping the workout itself. Used when recreating the graph from
	// a server event.
	DeleteWorkoutGraph(ctx context.Context, workoutLocalID uint64) error

	// AssignWorkoutServerID writes the server-acknowledged id onto the
	// workout matched by client_id. No-op if no workout matches.
	AssignWorkoutServerID(ctx context.Context, clientID, serverID string) error

	// AssignExerciseServerID writes the server-acknowledged id onto the
	// exercise matched by client_id
	AssignExerciseServerID(ctx context.Context, clientID, serverID string) error

	// AssignSetServerID writes the server-acknowledged id onto the
	// set matched by client_id
	AssignSetServerID(ctx context.Context, clientID, serverID string) error
}

// SetUpdates describes a partial update of a workout set.
// nil поле означает "оставить как есть"; DoneAtSet отличает
// "сбросить done_at" от "не трогать done_at".
type SetUpdates struct {
	Reps      *int
	Weight    *float64
	RPE       *float64
	DoneAt    *int64
	DoneAtSet bool
}
