package api

import (
	"context"

	"github.com/nvoisin/gymsync/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI определяет интерфейс HTTP клиента для работы с сервером
type ClientAPI interface {
	// Register регистрирует нового пользователя
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)

	// Login выполняет аутентификацию пользователя
	Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error)

	// Pull запрашивает все изменения на сервере после since (unix миллисекунды)
	Pull(ctx context.Context, accessToken string, since int64) (*api.PullResponse, error)

	// Push отправляет батч локальных мутаций
	Push(ctx context.Context, accessToken string, req api.PushRequest) (*api.PushResponse, error)

	// Share шарит тренировку с пользователем.
	// Ошибки сервера с машиночитаемым кодом возвращаются как *ShareError.
	Share(ctx context.Context, accessToken, workoutID string, req api.ShareRequest) (*api.ShareResponse, error)
}
