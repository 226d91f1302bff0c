package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	gosync "sync"

	httpclient "github.com/nvoisin/gymsync/internal/client/api"
	"github.com/nvoisin/gymsync/internal/client/netstatus"
	"github.com/nvoisin/gymsync/internal/client/storage"
	"github.com/nvoisin/gymsync/internal/models"
	"github.com/nvoisin/gymsync/pkg/api"
)

//go:generate moq -out session_mock.go . SessionSource

// SessionSource отдает текущую сессию пользователя.
// Для движка токен — непрозрачный credential, он только прикладывает
// его к запросам.
type SessionSource interface {
	// Session returns the current session
	// Returns storage.ErrAuthNotFound if the user is not logged in
	Session(ctx context.Context) (*storage.AuthData, error)
}

// Заголовки новых и скопированных тренировок. Продукт французский,
// строки должны совпадать с тем, что показывает приложение.
const (
	defaultDraftTitle = "Nouvelle séance"
	fallbackBaseTitle = "Séance"
)

// ErrWorkoutNotFound re-exported for callers of engine operations
var ErrWorkoutNotFound = storage.ErrWorkoutNotFound

// ShareResult описывает исход шаринга: либо немедленный share_id,
// либо мутация поставлена в очередь до появления сети
type ShareResult struct {
	Queued  bool
	ShareID string
}

// Engine — движок offline-first синхронизации. Единственная точка записи
// для экранов приложения: каждая локальная мутация проходит через него,
// попадает в outbox и рано или поздно доезжает до сервера.
//
// Все операции сериализованы одним mutex: параллельных flush/pull над
// одной очередью и курсором не бывает (см. flushLocked/pullLocked).
type Engine struct {
	apiClient httpclient.ClientAPI
	workouts  storage.WorkoutStorage
	queue     storage.QueueStorage
	syncState storage.SyncStateStorage
	session   SessionSource
	monitor   netstatus.Monitor
	logger    *slog.Logger

	mu       gosync.Mutex
	onChange func()
}

// NewEngine creates a new sync engine
func NewEngine(
	apiClient httpclient.ClientAPI,
	workouts storage.WorkoutStorage,
	queue storage.QueueStorage,
	syncState storage.SyncStateStorage,
	session SessionSource,
	monitor netstatus.Monitor,
	logger *slog.Logger,
) *Engine {
	if monitor == nil {
		// Без детектора сети считаем, что сеть есть
		monitor = netstatus.AssumeOnline{}
	}
	return &Engine{
		apiClient: apiClient,
		workouts:  workouts,
		queue:     queue,
		syncState: syncState,
		session:   session,
		monitor:   monitor,
		logger:    logger,
	}
}

// SetOnChange registers a callback invoked after local state changed
// (локальная мутация или применение серверных событий). UI вешает сюда
// перечитывание списка тренировок.
func (e *Engine) SetOnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = fn
}

// notifyChanged вызывает подписчика вне критической секции не нужно:
// колбек обязан быть быстрым и не дергать движок
func (e *Engine) notifyChanged() {
	if e.onChange != nil {
		e.onChange()
	}
}

// PendingCount returns the number of mutations awaiting server acknowledgment
func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	return e.queue.CountPending(ctx)
}

// ListWorkouts returns all local workouts with relations
func (e *Engine) ListWorkouts(ctx context.Context) ([]*models.WorkoutWithRelations, error) {
	return e.workouts.ListWorkouts(ctx)
}

// Bootstrap выполняет стартовую последовательность после аутентификации:
// полный pull (since=0), затем flush накопленного outbox. Полный pull
// до первого push гарантирует, что свежая сессия сначала полностью
// сверится с сервером.
func (e *Engine) Bootstrap(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.pullLocked(ctx, 0); err != nil {
		e.logger.Warn("bootstrap pull failed", "error", err)
	}
	return e.flushLocked(ctx)
}

// HandleOnline обрабатывает событие появления сети: flush, который
// по протоколу завершается pull. Безопасно вызывать сколько угодно раз.
func (e *Engine) HandleOnline(ctx context.Context) error {
	return e.Flush(ctx)
}

// CreateDraft creates a new draft workout locally and queues it for push
func (e *Engine) CreateDraft(ctx context.Context, title string) (*models.Workout, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.createDraft(ctx, title)
}

func (e *Engine) createDraft(ctx context.Context, title string) (*models.Workout, error) {
	normalized := strings.TrimSpace(title)
	if normalized == "" {
		normalized = defaultDraftTitle
	}

	userID := e.currentUserID(ctx)

	// Оптимистичная запись: она же определяет client_id для payload
	workout, err := e.workouts.CreateWorkout(ctx, storage.NewWorkout{
		Title:  normalized,
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create workout: %w", err)
	}

	payload := api.CreateWorkoutPayload{
		ClientID:  workout.ClientID,
		UserID:    userID,
		Title:     normalized,
		Status:    models.WorkoutStatusDraft,
		CreatedAt: workout.CreatedAt,
		UpdatedAt: workout.UpdatedAt,
	}
	if err := e.runMutation(ctx, api.ActionCreateWorkout, payload, nil); err != nil {
		return nil, err
	}

	return workout, nil
}

// UpdateTitle renames a workout
func (e *Engine) UpdateTitle(ctx context.Context, localID uint64, title string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	workout, err := e.workouts.GetWorkout(ctx, localID)
	if err != nil {
		return err
	}

	payload := api.WorkoutRefPayload{
		WorkoutID:       workout.ServerID,
		WorkoutClientID: workout.ClientID,
		ClientID:        workout.ClientID,
		Title:           title,
		UpdatedAt:       nowMillis(),
	}
	return e.runMutation(ctx, api.ActionUpdateTitle, payload, func(ctx context.Context) error {
		return e.workouts.UpdateWorkoutTitle(ctx, localID, title)
	})
}

// CompleteWorkout marks a workout as completed
func (e *Engine) CompleteWorkout(ctx context.Context, localID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	workout, err := e.workouts.GetWorkout(ctx, localID)
	if err != nil {
		return err
	}

	payload := api.WorkoutRefPayload{
		WorkoutID:       workout.ServerID,
		WorkoutClientID: workout.ClientID,
		ClientID:        workout.ClientID,
		UpdatedAt:       nowMillis(),
	}
	return e.runMutation(ctx, api.ActionCompleteWorkout, payload, func(ctx context.Context) error {
		return e.workouts.UpdateWorkoutStatus(ctx, localID, models.WorkoutStatusCompleted)
	})
}

// DeleteWorkout deletes a workout locally and queues the deletion
func (e *Engine) DeleteWorkout(ctx context.Context, localID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	workout, err := e.workouts.GetWorkout(ctx, localID)
	if err != nil {
		return err
	}

	now := nowMillis()
	payload := api.WorkoutRefPayload{
		WorkoutID:       workout.ServerID,
		WorkoutClientID: workout.ClientID,
		ClientID:        workout.ClientID,
		DeletedAt:       now,
		UpdatedAt:       now,
	}
	return e.runMutation(ctx, api.ActionDeleteWorkout, payload, func(ctx context.Context) error {
		return e.workouts.DeleteWorkout(ctx, localID)
	})
}

// AddExercise adds an exercise to a workout and returns its local id.
// Новое упражнение вставляется перед существующими: order_index на
// единицу меньше текущего минимума.
func (e *Engine) AddExercise(ctx context.Context, workoutLocalID uint64, exerciseID string, plannedSets *int) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addExercise(ctx, workoutLocalID, exerciseID, plannedSets)
}

func (e *Engine) addExercise(ctx context.Context, workoutLocalID uint64, exerciseID string, plannedSets *int) (uint64, error) {
	workout, err := e.workouts.GetWorkout(ctx, workoutLocalID)
	if err != nil {
		return 0, err
	}

	orderIndex := 0
	if target, err := e.findWorkoutRelations(ctx, workoutLocalID); err == nil && len(target.Exercises) > 0 {
		minOrder := target.Exercises[0].OrderIndex
		for _, ex := range target.Exercises {
			if ex.OrderIndex < minOrder {
				minOrder = ex.OrderIndex
			}
		}
		orderIndex = minOrder - 1
	}

	exercise, err := e.workouts.CreateExercise(ctx, storage.NewExercise{
		WorkoutID:   workoutLocalID,
		ExerciseID:  exerciseID,
		OrderIndex:  orderIndex,
		PlannedSets: plannedSets,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create exercise: %w", err)
	}

	payload := api.AddExercisePayload{
		WorkoutClientID: workout.ClientID,
		WorkoutServerID: workout.ServerID,
		ExerciseID:      exerciseID,
		OrderIndex:      orderIndex,
		PlannedSets:     plannedSets,
		ClientID:        exercise.ClientID,
	}
	if err := e.runMutation(ctx, api.ActionAddExercise, payload, nil); err != nil {
		return 0, err
	}

	return exercise.LocalID, nil
}

// UpdateExercisePlan updates planned sets of an exercise
func (e *Engine) UpdateExercisePlan(ctx context.Context, exerciseLocalID uint64, plannedSets *int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	exercise, err := e.findExercise(ctx, exerciseLocalID)
	if err != nil {
		return err
	}

	payload := api.ExerciseRefPayload{
		ExerciseClientID: exercise.ClientID,
		ClientID:         exercise.ClientID,
		PlannedSets:      plannedSets,
	}
	return e.runMutation(ctx, api.ActionUpdateExercisePlan, payload, func(ctx context.Context) error {
		return e.workouts.UpdateExercisePlan(ctx, exerciseLocalID, plannedSets)
	})
}

// RemoveExercise removes an exercise together with its sets
func (e *Engine) RemoveExercise(ctx context.Context, exerciseLocalID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	exercise, err := e.findExercise(ctx, exerciseLocalID)
	if err != nil {
		return err
	}

	payload := api.ExerciseRefPayload{
		ExerciseClientID: exercise.ClientID,
		ClientID:         exercise.ClientID,
	}
	return e.runMutation(ctx, api.ActionRemoveExercise, payload, func(ctx context.Context) error {
		return e.workouts.DeleteExercise(ctx, exerciseLocalID)
	})
}

// AddSet appends a set to an exercise
func (e *Engine) AddSet(ctx context.Context, exerciseLocalID uint64, values api.SetValues) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addSet(ctx, exerciseLocalID, values)
}

func (e *Engine) addSet(ctx context.Context, exerciseLocalID uint64, values api.SetValues) error {
	exercise, err := e.findExercise(ctx, exerciseLocalID)
	if err != nil {
		return err
	}

	set, err := e.workouts.CreateSet(ctx, storage.NewSet{
		WorkoutExerciseID: exerciseLocalID,
		Reps:              values.Reps,
		Weight:            values.Weight,
		RPE:               values.RPE,
	})
	if err != nil {
		return fmt.Errorf("failed to create set: %w", err)
	}

	payload := api.AddSetPayload{
		ExerciseClientID: exercise.ClientID,
		ClientID:         set.ClientID,
		Payload:          values,
	}
	return e.runMutation(ctx, api.ActionAddSet, payload, nil)
}

// UpdateSet applies a partial update to a set
func (e *Engine) UpdateSet(ctx context.Context, setLocalID uint64, updates storage.SetUpdates) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	set, err := e.findSet(ctx, setLocalID)
	if err != nil {
		return err
	}

	wireUpdates := api.SetUpdates{
		Reps:   updates.Reps,
		Weight: updates.Weight,
		RPE:    updates.RPE,
	}
	if updates.DoneAtSet {
		// done_at уходит на сервер и при сбросе: явный null в payload
		wireUpdates.DoneAt = updates.DoneAt
		wireUpdates.DoneAtSet = true
	}

	payload := api.UpdateSetPayload{
		SetID:       set.ServerID,
		SetClientID: set.ClientID,
		ClientID:    set.ClientID,
		Updates:     wireUpdates,
	}
	return e.runMutation(ctx, api.ActionUpdateSet, payload, func(ctx context.Context) error {
		return e.workouts.UpdateSet(ctx, setLocalID, updates)
	})
}

// RemoveSet removes a set
func (e *Engine) RemoveSet(ctx context.Context, setLocalID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	set, err := e.findSet(ctx, setLocalID)
	if err != nil {
		return err
	}

	payload := api.RemoveSetPayload{
		SetID:       set.ServerID,
		SetClientID: set.ClientID,
		ClientID:    set.ClientID,
	}
	return e.runMutation(ctx, api.ActionRemoveSet, payload, func(ctx context.Context) error {
		return e.workouts.DeleteSet(ctx, setLocalID)
	})
}

// DuplicateWorkout создает копию тренировки: новый draft с заголовком
// "<title> (copie)" (или "(copie N)" при коллизии), затем упражнения и
// подходы источника прогоняются через обычные add-операции. Копия
// порождает ровно те же записи очереди, как если бы пользователь ввел
// данные вручную.
func (e *Engine) DuplicateWorkout(ctx context.Context, localID uint64) (*models.WorkoutWithRelations, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	list, err := e.workouts.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}

	var source *models.WorkoutWithRelations
	titles := make(map[string]bool, len(list))
	for _, wr := range list {
		titles[wr.Workout.Title] = true
		if wr.Workout.LocalID == localID {
			source = wr
		}
	}
	if source == nil {
		return nil, storage.ErrWorkoutNotFound
	}

	base := strings.TrimSpace(source.Workout.Title)
	if base == "" {
		base = fallbackBaseTitle
	}
	candidate := base + " (copie)"
	for suffix := 2; titles[candidate]; suffix++ {
		candidate = fmt.Sprintf("%s (copie %d)", base, suffix)
	}

	duplicated, err := e.createDraft(ctx, candidate)
	if err != nil {
		return nil, err
	}

	// Упражнения в порядке order_index, подходы в порядке создания
	// (ListWorkouts уже отдает их так)
	for _, ex := range source.Exercises {
		newExerciseID, err := e.addExercise(ctx, duplicated.LocalID, ex.ExerciseID, ex.PlannedSets)
		if err != nil {
			return nil, fmt.Errorf("failed to duplicate exercise %q: %w", ex.ExerciseID, err)
		}
		for _, set := range source.SetsForExercise(ex.LocalID) {
			if err := e.addSet(ctx, newExerciseID, api.SetValues{
				Reps:   set.Reps,
				Weight: set.Weight,
				RPE:    set.RPE,
			}); err != nil {
				return nil, fmt.Errorf("failed to duplicate set: %w", err)
			}
		}
	}

	return e.findWorkoutRelations(ctx, duplicated.LocalID)
}

// ShareWorkout шарит тренировку. Офлайн — мутация ставится в очередь и
// возвращается Queued. Онлайн — синхронный вызов; не-ретраибельные коды
// (user_without_consent, user_not_found) пробрасываются вызывающему,
// любая другая ошибка превращается в отложенную мутацию.
func (e *Engine) ShareWorkout(ctx context.Context, localID uint64) (*ShareResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	workout, err := e.workouts.GetWorkout(ctx, localID)
	if err != nil {
		return nil, err
	}

	sess, err := e.session.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("share requires an authenticated session: %w", err)
	}

	payload := api.SharePayload{
		WorkoutID: workout.ClientID,
		UserID:    sess.UserID,
	}

	if !e.monitor.IsOnline() {
		if err := e.enqueueShare(ctx, payload); err != nil {
			return nil, err
		}
		return &ShareResult{Queued: true}, nil
	}

	resp, err := e.apiClient.Share(ctx, sess.AccessToken, payload.WorkoutID, api.ShareRequest{UserID: payload.UserID})
	if err == nil {
		return &ShareResult{ShareID: resp.ShareID}, nil
	}
	if httpclient.IsNonRetryableShareError(err) {
		return nil, err
	}

	e.logger.Warn("share failed, queueing for retry", "error", err)
	if qErr := e.enqueueShare(ctx, payload); qErr != nil {
		return nil, errors.Join(err, qErr)
	}
	return &ShareResult{Queued: true}, nil
}

func (e *Engine) enqueueShare(ctx context.Context, payload api.SharePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal share payload: %w", err)
	}
	if _, err := e.queue.Enqueue(ctx, api.ActionShareWorkout, data); err != nil {
		return fmt.Errorf("failed to enqueue share: %w", err)
	}
	return nil
}

// runMutation — общий каркас local-first мутации: запись в outbox,
// применение локального изменения, best-effort flush. Если локальная
// запись упала, только что созданная запись очереди удаляется и ошибка
// отдается вызывающему: невалидное оптимистичное состояние не должно
// уходить в ретраи.
func (e *Engine) runMutation(ctx context.Context, action string, payload any, apply func(ctx context.Context) error) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mutation payload: %w", err)
	}

	queueID, err := e.queue.Enqueue(ctx, action, data)
	if err != nil {
		return fmt.Errorf("failed to enqueue mutation: %w", err)
	}

	if apply != nil {
		if err := apply(ctx); err != nil {
			if rmErr := e.queue.Remove(ctx, queueID); rmErr != nil {
				e.logger.Error("failed to roll back queue entry",
					"queue_id", queueID,
					"error", rmErr)
			}
			return err
		}
	}

	e.notifyChanged()

	// Немедленная отправка — best effort: её неудача не отменяет
	// уже применённую локальную запись
	if err := e.flushLocked(ctx); err != nil {
		e.logger.Warn("flush after mutation failed", "error", err)
	}
	return nil
}

// currentUserID возвращает user_id сессии или пустую строку до логина
func (e *Engine) currentUserID(ctx context.Context) string {
	sess, err := e.session.Session(ctx)
	if err != nil {
		return ""
	}
	return sess.UserID
}

func (e *Engine) findWorkoutRelations(ctx context.Context, localID uint64) (*models.WorkoutWithRelations, error) {
	list, err := e.workouts.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}
	for _, wr := range list {
		if wr.Workout.LocalID == localID {
			return wr, nil
		}
	}
	return nil, storage.ErrWorkoutNotFound
}

func (e *Engine) findExercise(ctx context.Context, localID uint64) (*models.WorkoutExercise, error) {
	list, err := e.workouts.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}
	for _, wr := range list {
		for i := range wr.Exercises {
			if wr.Exercises[i].LocalID == localID {
				return &wr.Exercises[i], nil
			}
		}
	}
	return nil, storage.ErrExerciseNotFound
}

func (e *Engine) findSet(ctx context.Context, localID uint64) (*models.WorkoutSet, error) {
	list, err := e.workouts.ListWorkouts(ctx)
	if err != nil {
		return nil, err
	}
	for _, wr := range list {
		for i := range wr.Sets {
			if wr.Sets[i].LocalID == localID {
				return &wr.Sets[i], nil
			}
		}
	}
	return nil, storage.ErrSetNotFound
}
