package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nvoisin/gymsync/internal/client/storage"
	"github.com/nvoisin/gymsync/internal/models"
	"github.com/nvoisin/gymsync/pkg/api"
)

// Pull запрашивает у сервера события, произошедшие после курсора,
// и применяет их к локальному хранилищу
func (e *Engine) Pull(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pullLocked(ctx, -1)
}

// pullLocked выполняет один pull. since < 0 означает "от текущего
// курсора"; since == 0 форсирует полный pull (bootstrap).
//
// Каждое событие применяется изолированно: ошибка одного логируется
// и не мешает остальным. Курсор двигается даже при пустом списке
// событий, чтобы последующие pull не перечитывали один и тот же хвост.
func (e *Engine) pullLocked(ctx context.Context, since int64) error {
	if !e.monitor.IsOnline() {
		return nil
	}

	sess, err := e.session.Session(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			e.logger.Debug("skipping pull: not authenticated")
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	if since < 0 {
		since, err = e.syncState.GetLastPullTimestamp(ctx)
		if err != nil {
			return fmt.Errorf("failed to read sync cursor: %w", err)
		}
	}

	resp, err := e.apiClient.Pull(ctx, sess.AccessToken, since)
	if err != nil {
		return fmt.Errorf("failed to pull events: %w", err)
	}

	applied := 0
	for _, event := range resp.Events {
		if err := e.applyRemoteEvent(ctx, event); err != nil {
			e.logger.Warn("failed to apply remote event",
				"action", event.Action,
				"error", err)
			continue
		}
		applied++
	}

	e.advanceCursor(ctx, resp.ServerTime)

	if applied > 0 {
		e.notifyChanged()
	}
	return nil
}

// applyRemoteEvent применяет одно серверное событие к локальному
// хранилищу. Применение идемпотентно: повторная доставка того же
// события не меняет итоговое состояние. Записи создаются напрямую,
// минуя outbox, иначе серверные данные поехали бы обратно на сервер.
func (e *Engine) applyRemoteEvent(ctx context.Context, event api.RemoteEvent) error {
	switch event.Action {
	case api.EventWorkoutUpsert:
		return e.applyWorkoutUpsert(ctx, event.Payload)
	case api.EventWorkoutDelete:
		return e.applyWorkoutDelete(ctx, event.Payload)
	default:
		// Неизвестные события пропускаем: у старого клиента нет шансов
		// их понять, а ронять pull из-за них нельзя
		e.logger.Debug("ignoring unknown remote event", "action", event.Action)
		return nil
	}
}

func (e *Engine) applyWorkoutUpsert(ctx context.Context, payload json.RawMessage) error {
	var remote api.RemoteWorkout
	if err := json.Unmarshal(payload, &remote); err != nil {
		return fmt.Errorf("failed to decode workout upsert: %w", err)
	}
	if remote.ServerID == "" {
		return nil
	}

	existing, err := e.locateWorkout(ctx, remote.ServerID, remote.ClientID)
	if err != nil {
		return err
	}

	if existing == nil {
		// Никогда не виденная тренировка; tombstone создавать незачем
		if remote.DeletedAt != "" {
			return nil
		}
		return e.createFromRemote(ctx, &remote)
	}

	if remote.DeletedAt != "" {
		return e.workouts.DeleteWorkout(ctx, existing.Workout.LocalID)
	}

	// Тренировка известна локально: записываем server_id (no-op, если
	// уже присвоен) и подтягиваем изменившиеся поля
	if remote.ClientID != "" {
		if err := e.workouts.AssignWorkoutServerID(ctx, remote.ClientID, remote.ServerID); err != nil {
			e.logger.Warn("failed to record workout server id", "error", err)
		}
	}
	if remote.Title != "" && remote.Title != existing.Workout.Title {
		if err := e.workouts.UpdateWorkoutTitle(ctx, existing.Workout.LocalID, remote.Title); err != nil {
			return fmt.Errorf("failed to update title: %w", err)
		}
	}
	if remote.Status != "" && remote.Status != existing.Workout.Status {
		if err := e.workouts.UpdateWorkoutStatus(ctx, existing.Workout.LocalID, remote.Status); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
	}

	// Полный граф в событии замещает локальный целиком
	if len(remote.Exercises) > 0 {
		if err := e.workouts.DeleteWorkoutGraph(ctx, existing.Workout.LocalID); err != nil {
			return fmt.Errorf("failed to clear workout graph: %w", err)
		}
		if err := e.recreateGraph(ctx, existing.Workout.LocalID, remote.Exercises); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyWorkoutDelete(ctx context.Context, payload json.RawMessage) error {
	var remote api.RemoteWorkout
	if err := json.Unmarshal(payload, &remote); err != nil {
		return fmt.Errorf("failed to decode workout delete: %w", err)
	}

	existing, err := e.locateWorkout(ctx, remote.ServerID, remote.ClientID)
	if err != nil {
		return err
	}
	if existing == nil {
		// Удалять нечего, событие считается примененным
		return nil
	}
	return e.workouts.DeleteWorkout(ctx, existing.Workout.LocalID)
}

// locateWorkout ищет локальную тренировку сначала по server_id, затем
// по client_id. nil без ошибки означает "не найдена".
func (e *Engine) locateWorkout(ctx context.Context, serverID, clientID string) (*models.WorkoutWithRelations, error) {
	list, err := e.workouts.ListWorkouts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}
	if serverID != "" {
		for _, wr := range list {
			if wr.Workout.ServerID == serverID {
				return wr, nil
			}
		}
	}
	if clientID != "" {
		for _, wr := range list {
			if wr.Workout.ClientID == clientID {
				return wr, nil
			}
		}
	}
	return nil, nil
}

func (e *Engine) createFromRemote(ctx context.Context, remote *api.RemoteWorkout) error {
	status := remote.Status
	if status == "" {
		status = models.WorkoutStatusDraft
	}

	workout, err := e.workouts.CreateWorkout(ctx, storage.NewWorkout{
		Title:    remote.Title,
		UserID:   remote.UserID,
		Status:   status,
		ClientID: remote.ClientID,
		ServerID: remote.ServerID,
	})
	if err != nil {
		return fmt.Errorf("failed to create workout from event: %w", err)
	}
	return e.recreateGraph(ctx, workout.LocalID, remote.Exercises)
}

// recreateGraph восстанавливает упражнения и подходы тренировки из
// серверного события, с серверными идентификаторами
func (e *Engine) recreateGraph(ctx context.Context, workoutLocalID uint64, exercises []api.RemoteExercise) error {
	for _, re := range exercises {
		exercise, err := e.workouts.CreateExercise(ctx, storage.NewExercise{
			WorkoutID:   workoutLocalID,
			ExerciseID:  re.ExerciseID,
			OrderIndex:  re.OrderIndex,
			PlannedSets: re.PlannedSets,
			ClientID:    re.ClientID,
			ServerID:    re.ServerID,
		})
		if err != nil {
			return fmt.Errorf("failed to create exercise from event: %w", err)
		}

		for _, rs := range re.Sets {
			if _, err := e.workouts.CreateSet(ctx, storage.NewSet{
				WorkoutExerciseID: exercise.LocalID,
				Reps:              rs.Reps,
				Weight:            rs.Weight,
				RPE:               rs.RPE,
				DoneAt:            parseWireTime(rs.DoneAt),
				ClientID:          rs.ClientID,
				ServerID:          rs.ServerID,
			}); err != nil {
				return fmt.Errorf("failed to create set from event: %w", err)
			}
		}
	}
	return nil
}

// parseWireTime переводит RFC3339 с провода в unix миллисекунды;
// пустая или кривая строка дает nil
func parseWireTime(s string) *int64 {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
