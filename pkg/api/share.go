package api

// Коды ошибок шаринга, которые нельзя ретраить из очереди
const (
	ErrCodeUserWithoutConsent = "user_without_consent"
	ErrCodeUserNotFound       = "user_not_found"
)

// ShareRequest представляет запрос на шаринг тренировки
type ShareRequest struct {
	UserID string `json:"user_id"`
}

// ShareResponse представляет ответ сервера на шаринг
type ShareResponse struct {
	ShareID string `json:"share_id"`
}

// ErrorResponse представляет ошибку сервера с машиночитаемым кодом
type ErrorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
