package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

const (
	keyLastPullTimestamp = "last_pull_timestamp"
)

// SaveLastPullTimestamp saves the latest fully applied server time
func (s *Storage) SaveLastPullTimestamp(ctx context.Context, timestamp int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSyncState)
		if bucket == nil {
			return fmt.Errorf("sync state bucket not found")
		}

		// Конвертируем int64 в bytes
		timestampBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(timestampBytes, uint64(timestamp))

		if err := bucket.Put([]byte(keyLastPullTimestamp), timestampBytes); err != nil {
			return fmt.Errorf("failed to save last pull timestamp: %w", err)
		}
		return nil
	})
}

// GetLastPullTimestamp retrieves the sync cursor.
// Returns 0 if no pull has completed yet.
func (s *Storage) GetLastPullTimestamp(ctx context.Context) (int64, error) {
	var timestamp int64

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSyncState)
		if bucket == nil {
			return fmt.Errorf("sync state bucket not found")
		}

		timestampBytes := bucket.Get([]byte(keyLastPullTimestamp))
		if timestampBytes == nil {
			// Курсор еще не записан — первая синхронизация
			timestamp = 0
			return nil
		}

		timestamp = int64(binary.BigEndian.Uint64(timestampBytes))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get last pull timestamp: %w", err)
	}

	return timestamp, nil
}
