package storage

import "context"

// SyncStateStorage defines interface for the single persisted sync cursor
type SyncStateStorage interface {
	// SaveLastPullTimestamp saves the latest fully applied server time
	// (unix миллисекунды)
	SaveLastPullTimestamp(ctx context.Context, timestamp int64) error

	// GetLastPullTimestamp retrieves the sync cursor.
	// Returns 0 if no pull has completed yet.
	GetLastPullTimestamp(ctx context.Context) (int64, error)
}
