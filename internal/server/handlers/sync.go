package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nvoisin/gymsync/internal/models"
	"github.com/nvoisin/gymsync/internal/server/storage"
	"github.com/nvoisin/gymsync/pkg/api"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// UserIDKey ключ для хранения user_id в контексте
	UserIDKey contextKey = "user_id"
	// UsernameKey ключ для хранения username в контексте
	UsernameKey contextKey = "username"
)

// GetUserID извлекает user_id из контекста запроса
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUsername извлекает username из контекста запроса
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// SyncHandler handles push/pull synchronization requests
type SyncHandler struct {
	logger  *slog.Logger
	storage storage.SyncStorage
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, storage storage.SyncStorage) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		storage: storage,
	}
}

// Push обрабатывает POST /api/v1/sync/push
// Применяет батч мутаций из локальной очереди клиента в порядке queue_id.
// Для create-мутаций возвращает присвоенные server_id; повторная отправка
// того же батча безопасна, дедупликация идет по client_id.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("user id not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode push request", slog.Any("error", err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.logger.InfoContext(ctx, "push request",
		slog.String("user_id", userID),
		slog.Int("mutations_count", len(req.Mutations)))

	results := make([]api.MutationResult, 0, len(req.Mutations))

	for _, m := range req.Mutations {
		createdAt := time.Time{}
		if m.CreatedAt > 0 {
			createdAt = time.UnixMilli(m.CreatedAt).UTC()
		}

		serverID, err := h.storage.ApplyMutation(ctx, userID, m.Action, m.Payload, createdAt)
		if err != nil {
			// Клиент при ошибке оставит мутации в очереди и пришлет
			// их заново, поэтому весь батч отклоняется целиком
			h.logger.ErrorContext(ctx, "failed to apply mutation",
				slog.Uint64("queue_id", m.QueueID),
				slog.String("action", m.Action),
				slog.Any("error", err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if serverID != "" {
			results = append(results, api.MutationResult{
				QueueID:  m.QueueID,
				ServerID: serverID,
			})
		}
	}

	resp := api.PushResponse{
		Results:    results,
		ServerTime: time.Now().UTC().Format(time.RFC3339),
		Processed:  len(req.Mutations),
	}

	h.sendJSON(w, resp)

	h.logger.InfoContext(ctx, "push completed",
		slog.String("user_id", userID),
		slog.Int("processed", resp.Processed),
		slog.Int("assigned_ids", len(results)))
}

// Pull обрабатывает GET /api/v1/sync/pull?since=ms
// Возвращает события по тренировкам пользователя, измененным после since
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.Error("user id not found in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var since int64
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		var err error
		since, err = strconv.ParseInt(sinceStr, 10, 64)
		if err != nil || since < 0 {
			h.logger.WarnContext(ctx, "invalid since parameter", slog.String("since", sinceStr))
			http.Error(w, "Invalid since parameter", http.StatusBadRequest)
			return
		}
	}

	cutoff := time.UnixMilli(since).UTC()

	graphs, err := h.storage.WorkoutsUpdatedSince(ctx, userID, cutoff)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get workouts", slog.Any("error", err), slog.String("user_id", userID))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	events := make([]api.RemoteEvent, 0, len(graphs))
	for _, g := range graphs {
		event, err := buildWorkoutEvent(g)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to serialize workout event",
				slog.String("workout_id", g.Workout.ID), slog.Any("error", err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		events = append(events, event)
	}

	resp := api.PullResponse{
		Events:     events,
		ServerTime: time.Now().UTC().Format(time.RFC3339),
	}

	h.sendJSON(w, resp)

	h.logger.InfoContext(ctx, "pull completed",
		slog.String("user_id", userID),
		slog.Int64("since", since),
		slog.Int("events_count", len(events)))
}

// buildWorkoutEvent сериализует граф тренировки в событие.
// Tombstone отдается как workout-delete, все остальное — workout-upsert
// с полным вложенным графом.
func buildWorkoutEvent(g *models.ServerWorkoutGraph) (api.RemoteEvent, error) {
	w := g.Workout

	remote := api.RemoteWorkout{
		ServerID:  w.ID,
		ClientID:  w.ClientID,
		UserID:    w.UserID,
		Title:     w.Title,
		Status:    w.Status,
		CreatedAt: w.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: w.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if w.DeletedAt != nil {
		remote.DeletedAt = w.DeletedAt.UTC().Format(time.RFC3339)
	}

	for _, eg := range g.Exercises {
		remoteEx := api.RemoteExercise{
			ServerID:    eg.Exercise.ID,
			ClientID:    eg.Exercise.ClientID,
			ExerciseID:  eg.Exercise.ExerciseID,
			OrderIndex:  eg.Exercise.OrderIndex,
			PlannedSets: eg.Exercise.PlannedSets,
			Sets:        make([]api.RemoteSet, 0, len(eg.Sets)),
		}
		for _, st := range eg.Sets {
			remoteSet := api.RemoteSet{
				ServerID: st.ID,
				ClientID: st.ClientID,
				Reps:     st.Reps,
				Weight:   st.Weight,
				RPE:      st.RPE,
			}
			if st.DoneAt != nil {
				remoteSet.DoneAt = st.DoneAt.UTC().Format(time.RFC3339)
			}
			remoteEx.Sets = append(remoteEx.Sets, remoteSet)
		}
		remote.Exercises = append(remote.Exercises, remoteEx)
	}

	payload, err := json.Marshal(remote)
	if err != nil {
		return api.RemoteEvent{}, err
	}

	action := api.EventWorkoutUpsert
	if w.DeletedAt != nil {
		action = api.EventWorkoutDelete
	}

	return api.RemoteEvent{Action: action, Payload: payload}, nil
}

func (h *SyncHandler) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}
