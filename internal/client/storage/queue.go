package storage

import (
	"context"
	"encoding/json"

	"github.com/nvoisin/gymsync/internal/models"
)

// QueueStorage defines the durable outbox of pending local mutations.
// Записи живут в очереди до подтверждения сервером; порядок — строго
// по queue_id.
type QueueStorage interface {
	// Enqueue appends a pending mutation and returns its queue_id
	Enqueue(ctx context.Context, action string, payload json.RawMessage) (uint64, error)

	// Pending returns up to limit oldest records, oldest first.
	// Не меняет состояние очереди.
	Pending(ctx context.Context, limit int) ([]*models.MutationRecord, error)

	// MarkFailed sets status=failed and stores the error message.
	// Запись остается в очереди и будет отправлена при следующем flush.
	MarkFailed(ctx context.Context, queueID uint64, message string) error

	// Remove permanently deletes a record. Used after server acknowledgment
	// and when rolling back a failed local write.
	Remove(ctx context.Context, queueID uint64) error

	// CountPending returns the number of records still in the queue
	CountPending(ctx context.Context) (int, error)
}
