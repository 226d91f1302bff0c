package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetLastPullTimestamp(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	// До первой синхронизации курсор равен 0
	ts, err := store.GetLastPullTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	var expectedTS int64 = 1735689600000
	require.NoError(t, store.SaveLastPullTimestamp(ctx, expectedTS))

	gotTS, err := store.GetLastPullTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, expectedTS, gotTS)
}

func TestSaveLastPullTimestamp_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	require.NoError(t, store.SaveLastPullTimestamp(ctx, 100))
	require.NoError(t, store.SaveLastPullTimestamp(ctx, 200))

	ts, err := store.GetLastPullTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), ts)
}
