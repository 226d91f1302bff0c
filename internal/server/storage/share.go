package storage

import (
	"context"

	"github.com/nvoisin/gymsync/internal/models"
)

// ShareStorage defines interface for workout share records
type ShareStorage interface {
	// CreateShare records a public share of a workout owned by the user.
	// workoutID is resolved as client_id first, then as server id.
	// Returns ErrWorkoutNotFound if no workout of the user matches.
	CreateShare(ctx context.Context, userID, workoutID string) (*models.Share, error)
}
