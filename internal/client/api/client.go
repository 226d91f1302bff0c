package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nvoisin/gymsync/pkg/api"
)

// ShareError представляет ошибку шаринга с машиночитаемым кодом.
// Коды user_without_consent и user_not_found не являются транзиентными
// и не должны попадать в очередь повторов.
type ShareError struct {
	Code    string
	Message string
}

func (e *ShareError) Error() string {
	return fmt.Sprintf("share failed (%s): %s", e.Code, e.Message)
}

// IsNonRetryableShareError reports whether err is a share error that must be
// surfaced to the caller instead of being queued
func IsNonRetryableShareError(err error) bool {
	var shareErr *ShareError
	if !errors.As(err, &shareErr) {
		return false
	}
	return shareErr.Code == api.ErrCodeUserWithoutConsent ||
		shareErr.Code == api.ErrCodeUserNotFound
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовок Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Pull запрашивает изменения на сервере после since
func (c *Client) Pull(ctx context.Context, accessToken string, since int64) (*api.PullResponse, error) {
	var resp api.PullResponse
	path := "/api/v1/sync/pull?since=" + strconv.FormatInt(since, 10)
	err := c.doRequest(ctx, http.MethodGet, path, accessToken, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}
	return &resp, nil
}

// Push отправляет батч локальных мутаций
func (c *Client) Push(ctx context.Context, accessToken string, req api.PushRequest) (*api.PushResponse, error) {
	var resp api.PushResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/sync/push", accessToken, req, &resp)
	if err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	return &resp, nil
}

// Share шарит тренировку с пользователем
func (c *Client) Share(ctx context.Context, accessToken, workoutID string, req api.ShareRequest) (*api.ShareResponse, error) {
	var resp api.ShareResponse
	path := "/api/v1/share/" + url.PathEscape(workoutID)
	err := c.doRequest(ctx, http.MethodPost, path, accessToken, req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, accessToken string, body, result interface{}) error {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Code != "" {
			return &ShareError{Code: errResp.Code, Message: errResp.Message}
		}
		if errResp.Message != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Message)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
