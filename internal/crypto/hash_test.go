package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "correct-horse-battery", hash)

	// bcrypt солит каждый хеш, повторное хеширование дает другую строку
	hash2, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)

	require.NoError(t, VerifyPassword("correct-horse-battery", hash))

	err = VerifyPassword("wrong-password", hash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid password")
}

func TestVerifyPassword_EmptyInputs(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)

	assert.Error(t, VerifyPassword("", hash))
	assert.Error(t, VerifyPassword("correct-horse-battery", ""))
}
