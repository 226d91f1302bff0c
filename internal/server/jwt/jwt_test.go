package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := NewService([]byte("test-secret-key"), 15*time.Minute)

	token, expiresIn, err := svc.GenerateAccessToken("user-1", "nico")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, int64(900), expiresIn)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "nico", claims.Username)
	assert.Equal(t, "gymsync", claims.Issuer)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	svc := NewService([]byte("secret-a"), 15*time.Minute)
	other := NewService([]byte("secret-b"), 15*time.Minute)

	token, _, err := svc.GenerateAccessToken("user-1", "nico")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := NewService([]byte("test-secret-key"), -time.Minute)

	token, _, err := svc.GenerateAccessToken("user-1", "nico")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	svc := NewService([]byte("test-secret-key"), 15*time.Minute)

	_, err := svc.ValidateAccessToken("not.a.token")
	assert.Error(t, err)
}
