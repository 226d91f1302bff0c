package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nvoisin/gymsync/internal/models"
	"github.com/nvoisin/gymsync/internal/server/storage"
)

// CreateShare records a public share of a workout owned by the user.
// workoutID is resolved as client_id first, then as server id.
func (s *Storage) CreateShare(ctx context.Context, userID, workoutID string) (*models.Share, error) {
	resolved, err := s.findWorkoutID(ctx, userID, workoutRef{
		WorkoutClientID: workoutID,
		WorkoutID:       workoutID,
	})
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		return nil, storage.ErrWorkoutNotFound
	}

	share := &models.Share{
		ID:        uuid.New().String(),
		WorkoutID: resolved,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO shares (id, workout_id, user_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		share.ID, share.WorkoutID, share.UserID, share.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert share: %w", err)
	}

	return share, nil
}
