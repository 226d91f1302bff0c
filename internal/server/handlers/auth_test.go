package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoisin/gymsync/internal/crypto"
	"github.com/nvoisin/gymsync/internal/models"
	"github.com/nvoisin/gymsync/internal/server/jwt"
	"github.com/nvoisin/gymsync/internal/server/storage"
	"github.com/nvoisin/gymsync/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

func testTokens() *jwt.Service {
	return jwt.NewService([]byte("test-secret"), 15*time.Minute)
}

// mockUserStorage is a mock implementation of UserStorage for testing
type mockUserStorage struct {
	users        map[string]*models.User // username -> User
	createError  error
	getUserError error
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{users: make(map[string]*models.User)}
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *models.User) error {
	if m.createError != nil {
		return m.createError
	}
	if _, exists := m.users[user.Username]; exists {
		return storage.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	user, ok := m.users[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	if m.getUserError != nil {
		return nil, m.getUserError
	}
	for _, user := range m.users {
		if user.ID == userID {
			return user, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (m *mockUserStorage) UpdateLastLogin(ctx context.Context, userID string, lastLogin time.Time) error {
	for _, user := range m.users {
		if user.ID == userID {
			user.LastLogin = &lastLogin
			return nil
		}
	}
	return storage.ErrUserNotFound
}

func registerRequest(t *testing.T, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	handler := NewAuthHandler(setupTestLogger(), newMockUserStorage(), testTokens())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(data))
	w := httptest.NewRecorder()
	handler.Register(w, req)
	return w
}

func TestAuthHandler_Register_Success(t *testing.T) {
	users := newMockUserStorage()
	handler := NewAuthHandler(setupTestLogger(), users, testTokens())

	body, _ := json.Marshal(api.RegisterRequest{Username: "nico", Password: "s3cret-pass"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Register(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp api.RegisterResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "nico", resp.Username)
	assert.NotEmpty(t, resp.UserID)

	// Пароль сохранен как bcrypt-хеш, не открытым текстом
	saved := users.users["nico"]
	require.NotNil(t, saved)
	assert.NotEqual(t, "s3cret-pass", saved.PasswordHash)
	assert.NoError(t, crypto.VerifyPassword("s3cret-pass", saved.PasswordHash))
}

func TestAuthHandler_Register_InvalidUsername(t *testing.T) {
	w := registerRequest(t, api.RegisterRequest{Username: "no spaces!", Password: "s3cret-pass"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Register_ShortPassword(t *testing.T) {
	w := registerRequest(t, api.RegisterRequest{Username: "nico", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Register_DuplicateUsername(t *testing.T) {
	users := newMockUserStorage()
	handler := NewAuthHandler(setupTestLogger(), users, testTokens())

	body, _ := json.Marshal(api.RegisterRequest{Username: "nico", Password: "s3cret-pass"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Register(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	w = httptest.NewRecorder()
	handler.Register(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	users := newMockUserStorage()
	tokens := testTokens()

	hash, err := crypto.HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, users.CreateUser(context.Background(), &models.User{
		ID:           "user-1",
		Username:     "nico",
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}))

	handler := NewAuthHandler(setupTestLogger(), users, tokens)

	body, _ := json.Marshal(api.LoginRequest{Username: "nico", Password: "s3cret-pass"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, "user-1", resp.UserID)
	assert.Equal(t, int64(900), resp.ExpiresIn)

	claims, err := tokens.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "nico", claims.Username)

	// last_login обновлен
	assert.NotNil(t, users.users["nico"].LastLogin)
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	users := newMockUserStorage()

	hash, err := crypto.HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, users.CreateUser(context.Background(), &models.User{
		ID:           "user-1",
		Username:     "nico",
		PasswordHash: hash,
	}))

	handler := NewAuthHandler(setupTestLogger(), users, testTokens())

	body, _ := json.Marshal(api.LoginRequest{Username: "nico", Password: "wrong-pass-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Login_UnknownUser(t *testing.T) {
	handler := NewAuthHandler(setupTestLogger(), newMockUserStorage(), testTokens())

	body, _ := json.Marshal(api.LoginRequest{Username: "ghost", Password: "s3cret-pass"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	handler := NewAuthHandler(setupTestLogger(), newMockUserStorage(), testTokens())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte("{broken")))
	w := httptest.NewRecorder()
	handler.Register(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
