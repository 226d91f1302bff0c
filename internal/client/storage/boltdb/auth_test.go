package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoisin/gymsync/internal/client/storage"
)

func TestAuthLifecycle(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	// Пока сессии нет — ErrAuthNotFound
	_, err := store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	auth := &storage.AuthData{
		Username:    "marie",
		UserID:      "user-1",
		AccessToken: "token-abc",
		ExpiresAt:   1735689600,
	}
	require.NoError(t, store.SaveAuth(ctx, auth))

	got, err := store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth, got)

	require.NoError(t, store.DeleteAuth(ctx))
	_, err = store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}
