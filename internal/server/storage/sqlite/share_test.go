package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoisin/gymsync/internal/server/storage"
)

func TestCreateShare_ResolvesClientID(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, serverID := seedWorkout(t, s, "cw-1")

	share, err := s.CreateShare(ctx, userID, "cw-1")
	require.NoError(t, err)
	assert.NotEmpty(t, share.ID)
	assert.Equal(t, serverID, share.WorkoutID)
	assert.Equal(t, userID, share.UserID)
}

func TestCreateShare_ResolvesServerID(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, serverID := seedWorkout(t, s, "cw-1")

	share, err := s.CreateShare(ctx, userID, serverID)
	require.NoError(t, err)
	assert.Equal(t, serverID, share.WorkoutID)
}

func TestCreateShare_UnknownWorkout(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, _ := seedWorkout(t, s, "cw-1")

	_, err := s.CreateShare(ctx, userID, "ghost")
	assert.ErrorIs(t, err, storage.ErrWorkoutNotFound)
}

func TestCreateShare_OtherUsersWorkout(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	_, serverID := seedWorkout(t, s, "cw-1")

	intruder := newTestUser("intruder")
	require.NoError(t, s.CreateUser(ctx, intruder))

	_, err := s.CreateShare(ctx, intruder.ID, serverID)
	assert.ErrorIs(t, err, storage.ErrWorkoutNotFound)
}
