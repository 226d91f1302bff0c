package auth

import (
	"context"
	"fmt"
	"time"

	httpclient "github.com/nvoisin/gymsync/internal/client/api"
	"github.com/nvoisin/gymsync/internal/client/storage"
	"github.com/nvoisin/gymsync/internal/validation"
	pkgapi "github.com/nvoisin/gymsync/pkg/api"
)

// Service предоставляет функции авторизации и хранит сессию
// в локальном хранилище клиента
type Service struct {
	apiClient httpclient.ClientAPI
	store     storage.AuthStorage
}

// NewService создает новый сервис авторизации
func NewService(apiClient httpclient.ClientAPI, store storage.AuthStorage) *Service {
	return &Service{
		apiClient: apiClient,
		store:     store,
	}
}

// Register регистрирует нового пользователя. Сессию не создает:
// после регистрации нужен явный Login.
func (s *Service) Register(ctx context.Context, username, password string) (*pkgapi.RegisterResponse, error) {
	// Валидация входных данных
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.apiClient.Register(ctx, pkgapi.RegisterRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return resp, nil
}

// Login выполняет аутентификацию и сохраняет сессию локально
func (s *Service) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}

	resp, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	auth := &storage.AuthData{
		Username:    username,
		UserID:      resp.UserID,
		AccessToken: resp.AccessToken,
		ExpiresAt:   time.Now().Unix() + resp.ExpiresIn,
	}
	if err := s.store.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return auth, nil
}

// Logout удаляет локальную сессию. Сервер не уведомляется:
// токен короткоживущий и протухнет сам.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.DeleteAuth(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Session возвращает текущую сессию.
// Истекшая сессия равна её отсутствию: возвращается storage.ErrAuthNotFound,
// чтобы движок синхронизации молча пропускал сетевые операции.
func (s *Service) Session(ctx context.Context) (*storage.AuthData, error) {
	auth, err := s.store.GetAuth(ctx)
	if err != nil {
		return nil, err
	}
	if auth.ExpiresAt > 0 && time.Now().Unix() >= auth.ExpiresAt {
		return nil, storage.ErrAuthNotFound
	}
	return auth, nil
}

// IsAuthenticated сообщает, есть ли живая сессия
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	_, err := s.Session(ctx)
	if err != nil {
		if err == storage.ErrAuthNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
