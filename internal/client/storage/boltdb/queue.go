package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/nvoisin/gymsync/internal/client/storage"
	"github.com/nvoisin/gymsync/internal/models"
)

// Enqueue appends a pending mutation and returns its queue_id.
// NextSequence дает монотонный queue_id; big-endian ключи сохраняют
// FIFO порядок при обходе курсором.
func (s *Storage) Enqueue(ctx context.Context, action string, payload json.RawMessage) (uint64, error) {
	var queueID uint64

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		id, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to generate queue id: %w", err)
		}
		queueID = id

		record := &models.MutationRecord{
			QueueID:   id,
			Action:    action,
			Payload:   payload,
			CreatedAt: nowMillis(),
			Status:    models.MutationStatusPending,
		}

		return putJSON(bucket, itob(id), record)
	})
	if err != nil {
		return 0, err
	}

	return queueID, nil
}

// Pending returns up to limit oldest records, oldest first
func (s *Storage) Pending(ctx context.Context, limit int) ([]*models.MutationRecord, error) {
	var records []*models.MutationRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		c := bucket.Cursor()
		for k, v := c.First(); k != nil && len(records) < limit; k, v = c.Next() {
			record := &models.MutationRecord{}
			if err := json.Unmarshal(v, record); err != nil {
				return fmt.Errorf("failed to unmarshal mutation: %w", err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// MarkFailed sets status=failed and stores the error message
func (s *Storage) MarkFailed(ctx context.Context, queueID uint64, message string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		data := bucket.Get(itob(queueID))
		if data == nil {
			return storage.ErrMutationNotFound
		}

		var record models.MutationRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("failed to unmarshal mutation: %w", err)
		}

		record.Status = models.MutationStatusFailed
		record.LastError = message
		return putJSON(bucket, itob(queueID), &record)
	})
}

// Remove permanently deletes a record from the queue
func (s *Storage) Remove(ctx context.Context, queueID uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		if err := bucket.Delete(itob(queueID)); err != nil {
			return fmt.Errorf("failed to remove mutation: %w", err)
		}
		return nil
	})
}

// CountPending returns the number of records still in the queue
func (s *Storage) CountPending(ctx context.Context) (int, error) {
	var count int

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketQueue)
		if bucket == nil {
			return fmt.Errorf("queue bucket not found")
		}

		count = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}
