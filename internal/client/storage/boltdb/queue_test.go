package boltdb

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoisin/gymsync/internal/models"
)

func TestEnqueue_AssignsMonotonicQueueIDs(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	id1, err := store.Enqueue(ctx, "create-workout", json.RawMessage(`{"client_id":"a"}`))
	require.NoError(t, err)
	id2, err := store.Enqueue(ctx, "add-set", json.RawMessage(`{"client_id":"b"}`))
	require.NoError(t, err)

	assert.Greater(t, id2, id1)

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPending_FIFOWithLimit(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	for i := 0; i < 5; i++ {
		_, err := store.Enqueue(ctx, "update-title", json.RawMessage(`{}`))
		require.NoError(t, err)
	}

	records, err := store.Pending(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Старые записи идут первыми
	assert.Less(t, records[0].QueueID, records[1].QueueID)
	assert.Less(t, records[1].QueueID, records[2].QueueID)

	// Pending не меняет состояние очереди
	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestMarkFailed_KeepsRecordInQueue(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	id, err := store.Enqueue(ctx, "add-exercise", json.RawMessage(`{"client_id":"x"}`))
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, id, "connection refused"))

	records, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.MutationStatusFailed, records[0].Status)
	assert.Equal(t, "connection refused", records[0].LastError)

	// Упавшая запись все еще учитывается в backlog
	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	id, err := store.Enqueue(ctx, "delete-workout", json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx, id))

	count, err := store.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Повторное удаление — no-op
	require.NoError(t, store.Remove(ctx, id))
}

func TestQueueIDsNotReusedAfterRemove(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	id1, err := store.Enqueue(ctx, "create-workout", json.RawMessage(`{}`))
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, id1))

	id2, err := store.Enqueue(ctx, "create-workout", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
}
