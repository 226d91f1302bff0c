package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nvoisin/gymsync/internal/models"
)

// SyncStorage defines interface for applying client mutations and
// reading back server-side changes
type SyncStorage interface {
	// ApplyMutation applies a single outbox mutation for the user.
	// Create actions are deduplicated by client_id; the returned server id
	// is non-empty only for create actions (fresh or already applied).
	// Mutations addressing records that no longer exist are dropped silently:
	// the client already moved on and retrying them cannot succeed.
	ApplyMutation(ctx context.Context, userID, action string, payload json.RawMessage, createdAt time.Time) (string, error)

	// WorkoutsUpdatedSince returns full workout graphs of the user updated
	// strictly after the cutoff, tombstones included, ordered by updated_at
	WorkoutsUpdatedSince(ctx context.Context, userID string, cutoff time.Time) ([]*models.ServerWorkoutGraph, error)
}
