package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nvoisin/gymsync/internal/server/storage"
	"github.com/nvoisin/gymsync/pkg/api"
)

// ShareHandler обрабатывает шаринг тренировок
type ShareHandler struct {
	logger      *slog.Logger
	userStorage storage.UserStorage
	shares      storage.ShareStorage
}

// NewShareHandler создает новый handler для шаринга
func NewShareHandler(logger *slog.Logger, userStorage storage.UserStorage, shares storage.ShareStorage) *ShareHandler {
	return &ShareHandler{
		logger:      logger,
		userStorage: userStorage,
		shares:      shares,
	}
}

// Share обрабатывает POST /api/v1/share/{workout_id}
// Публикует тренировку пользователя. Ошибки с машиночитаемым кодом
// (user_not_found, user_without_consent) клиент не ретраит из очереди.
func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	authUserID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("user id not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	workoutID := r.PathValue("workout_id")
	if workoutID == "" {
		h.sendError(w, "", "workout_id is required", http.StatusBadRequest)
		return
	}

	var req api.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode share request", slog.Any("error", err))
		h.sendError(w, "", "invalid request body", http.StatusBadRequest)
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = authUserID
	}

	user, err := h.userStorage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "share failed: user not found", slog.String("user_id", userID))
			h.sendError(w, api.ErrCodeUserNotFound, "user not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "", "internal server error", http.StatusInternalServerError)
		return
	}

	if !user.ConsentPublicShare {
		h.logger.WarnContext(ctx, "share failed: no consent", slog.String("user_id", user.ID))
		h.sendError(w, api.ErrCodeUserWithoutConsent, "user has not consented to public sharing", http.StatusForbidden)
		return
	}

	share, err := h.shares.CreateShare(ctx, authUserID, workoutID)
	if err != nil {
		if errors.Is(err, storage.ErrWorkoutNotFound) {
			h.logger.WarnContext(ctx, "share failed: workout not found",
				slog.String("workout_id", workoutID), slog.String("user_id", authUserID))
			h.sendError(w, "", "workout not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create share", slog.Any("error", err))
		h.sendError(w, "", "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "workout shared",
		slog.String("share_id", share.ID),
		slog.String("workout_id", share.WorkoutID),
		slog.String("user_id", authUserID))

	h.sendJSON(w, api.ShareResponse{ShareID: share.ID}, http.StatusOK)
}

func (h *ShareHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func (h *ShareHandler) sendError(w http.ResponseWriter, code, message string, statusCode int) {
	h.sendJSON(w, api.ErrorResponse{Code: code, Message: message}, statusCode)
}
