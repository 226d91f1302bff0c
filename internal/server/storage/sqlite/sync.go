package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nvoisin/gymsync/internal/models"
	"github.com/nvoisin/gymsync/pkg/api"
)

// Ссылки на записи внутри payload мутации. Клиент адресует запись
// по client_id, пока не знает server_id, поэтому каждый поиск идет
// сначала по client_id и только потом по серверному идентификатору.

type workoutRef struct {
	WorkoutClientID string `json:"workoutClientId"`
	ClientID        string `json:"client_id"`
	WorkoutServerID string `json:"workoutServerId"`
	WorkoutID       string `json:"workoutId"`
}

type exerciseRef struct {
	ExerciseClientID  string `json:"exerciseClientId"`
	ClientID          string `json:"client_id"`
	WorkoutExerciseID string `json:"workoutExerciseId"`
}

type setRef struct {
	SetClientID string `json:"setClientId"`
	ClientID    string `json:"client_id"`
	SetID       string `json:"setId"`
}

// ApplyMutation applies a single outbox mutation for the user.
// Create actions are deduplicated by client_id so that a batch replayed
// after a lost response does not produce duplicates. Mutations addressing
// records that no longer exist are dropped silently.
func (s *Storage) ApplyMutation(ctx context.Context, userID, action string, payload json.RawMessage, createdAt time.Time) (string, error) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	switch action {
	case api.ActionCreateWorkout:
		return s.applyCreateWorkout(ctx, userID, payload, createdAt)
	case api.ActionUpdateTitle:
		return "", s.applyUpdateTitle(ctx, userID, payload, now)
	case api.ActionCompleteWorkout:
		return "", s.applyCompleteWorkout(ctx, userID, payload, now)
	case api.ActionDeleteWorkout:
		return "", s.applyDeleteWorkout(ctx, userID, payload, now)
	case api.ActionAddExercise:
		return s.applyAddExercise(ctx, userID, payload, createdAt, now)
	case api.ActionUpdateExercisePlan:
		return "", s.applyUpdateExercisePlan(ctx, userID, payload, now)
	case api.ActionRemoveExercise:
		return "", s.applyRemoveExercise(ctx, userID, payload)
	case api.ActionAddSet:
		return s.applyAddSet(ctx, userID, payload, createdAt, now)
	case api.ActionUpdateSet:
		return "", s.applyUpdateSet(ctx, userID, payload, now)
	case api.ActionRemoveSet:
		return "", s.applyRemoveSet(ctx, userID, payload)
	default:
		// Неизвестное действие записываем как есть: старый сервер не должен
		// терять мутации нового клиента
		return s.recordEvent(ctx, userID, action, payload, createdAt)
	}
}

func (s *Storage) applyCreateWorkout(ctx context.Context, userID string, payload json.RawMessage, createdAt time.Time) (string, error) {
	var p api.CreateWorkoutPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("failed to decode create-workout payload: %w", err)
	}

	if p.ClientID != "" {
		var existingID string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM workouts WHERE client_id = ? AND user_id = ?`,
			p.ClientID, userID,
		).Scan(&existingID)
		if err == nil {
			return existingID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to look up workout by client_id: %w", err)
		}
	}

	status := p.Status
	if status == "" {
		status = models.WorkoutStatusDraft
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workouts (id, client_id, user_id, title, status, created_at, updated_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		id, p.ClientID, userID, p.Title, status,
		msToTime(p.CreatedAt, createdAt), msToTime(p.UpdatedAt, createdAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert workout: %w", err)
	}

	return id, nil
}

func (s *Storage) applyUpdateTitle(ctx context.Context, userID string, payload json.RawMessage, now time.Time) error {
	var p api.WorkoutRefPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode update-title payload: %w", err)
	}

	workoutID, err := s.findWorkoutID(ctx, userID, workoutRef{
		WorkoutClientID: p.WorkoutClientID,
		ClientID:        p.ClientID,
		WorkoutID:       p.WorkoutID,
	})
	if err != nil || workoutID == "" {
		return err
	}

	if p.Title == "" {
		// Нечего менять, но updated_at все равно двигаем
		_, err = s.db.ExecContext(ctx,
			`UPDATE workouts SET updated_at = ? WHERE id = ?`,
			msToTime(p.UpdatedAt, now), workoutID)
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE workouts SET title = ?, updated_at = ? WHERE id = ?`,
		p.Title, msToTime(p.UpdatedAt, now), workoutID)
	if err != nil {
		return fmt.Errorf("failed to update workout title: %w", err)
	}
	return nil
}

func (s *Storage) applyCompleteWorkout(ctx context.Context, userID string, payload json.RawMessage, now time.Time) error {
	var p api.WorkoutRefPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode complete-workout payload: %w", err)
	}

	workoutID, err := s.findWorkoutID(ctx, userID, workoutRef{
		WorkoutClientID: p.WorkoutClientID,
		ClientID:        p.ClientID,
		WorkoutID:       p.WorkoutID,
	})
	if err != nil || workoutID == "" {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE workouts SET status = ?, updated_at = ? WHERE id = ?`,
		models.WorkoutStatusCompleted, msToTime(p.UpdatedAt, now), workoutID)
	if err != nil {
		return fmt.Errorf("failed to complete workout: %w", err)
	}
	return nil
}

func (s *Storage) applyDeleteWorkout(ctx context.Context, userID string, payload json.RawMessage, now time.Time) error {
	var p api.WorkoutRefPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode delete-workout payload: %w", err)
	}

	workoutID, err := s.findWorkoutID(ctx, userID, workoutRef{
		WorkoutClientID: p.WorkoutClientID,
		ClientID:        p.ClientID,
		WorkoutID:       p.WorkoutID,
	})
	if err != nil || workoutID == "" {
		return err
	}

	// Tombstone вместо DELETE: pull должен отдать workout-delete
	// остальным устройствам пользователя
	_, err = s.db.ExecContext(ctx,
		`UPDATE workouts SET deleted_at = ?, updated_at = ? WHERE id = ?`,
		msToTime(p.DeletedAt, now), msToTime(p.UpdatedAt, now), workoutID)
	if err != nil {
		return fmt.Errorf("failed to delete workout: %w", err)
	}
	return nil
}

func (s *Storage) applyAddExercise(ctx context.Context, userID string, payload json.RawMessage, createdAt, now time.Time) (string, error) {
	var p api.AddExercisePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("failed to decode add-exercise payload: %w", err)
	}

	if p.ClientID != "" {
		var existingID string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM workout_exercises WHERE client_id = ?`,
			p.ClientID,
		).Scan(&existingID)
		if err == nil {
			return existingID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to look up exercise by client_id: %w", err)
		}
	}

	workoutID, err := s.findWorkoutID(ctx, userID, workoutRef{
		WorkoutClientID: p.WorkoutClientID,
		WorkoutServerID: p.WorkoutServerID,
		WorkoutID:       p.WorkoutID,
	})
	if err != nil || workoutID == "" {
		return "", err
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workout_exercises (id, client_id, workout_id, exercise_id, order_index, planned_sets, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.ClientID, workoutID, p.ExerciseID, p.OrderIndex, p.PlannedSets, createdAt, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert exercise: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE workouts SET updated_at = ? WHERE id = ?`, now, workoutID); err != nil {
		return "", fmt.Errorf("failed to touch workout: %w", err)
	}

	return id, nil
}

func (s *Storage) applyUpdateExercisePlan(ctx context.Context, userID string, payload json.RawMessage, now time.Time) error {
	var p api.ExerciseRefPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode update-exercise-plan payload: %w", err)
	}

	exerciseID, err := s.findExerciseID(ctx, userID, exerciseRef{
		ExerciseClientID:  p.ExerciseClientID,
		ClientID:          p.ClientID,
		WorkoutExerciseID: p.WorkoutExerciseID,
	})
	if err != nil || exerciseID == "" {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE workout_exercises SET planned_sets = ?, updated_at = ? WHERE id = ?`,
		p.PlannedSets, now, exerciseID)
	if err != nil {
		return fmt.Errorf("failed to update exercise plan: %w", err)
	}
	return nil
}

func (s *Storage) applyRemoveExercise(ctx context.Context, userID string, payload json.RawMessage) error {
	var p api.ExerciseRefPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode remove-exercise payload: %w", err)
	}

	exerciseID, err := s.findExerciseID(ctx, userID, exerciseRef{
		ExerciseClientID:  p.ExerciseClientID,
		ClientID:          p.ClientID,
		WorkoutExerciseID: p.WorkoutExerciseID,
	})
	if err != nil || exerciseID == "" {
		return err
	}

	// Подходы уходят каскадом
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM workout_exercises WHERE id = ?`, exerciseID); err != nil {
		return fmt.Errorf("failed to remove exercise: %w", err)
	}
	return nil
}

func (s *Storage) applyAddSet(ctx context.Context, userID string, payload json.RawMessage, createdAt, now time.Time) (string, error) {
	var p api.AddSetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", fmt.Errorf("failed to decode add-set payload: %w", err)
	}

	if p.ClientID != "" {
		var existingID string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM sets WHERE client_id = ?`,
			p.ClientID,
		).Scan(&existingID)
		if err == nil {
			return existingID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to look up set by client_id: %w", err)
		}
	}

	exerciseID, err := s.findExerciseID(ctx, userID, exerciseRef{
		ExerciseClientID:  p.ExerciseClientID,
		WorkoutExerciseID: p.WorkoutExerciseID,
	})
	if err != nil || exerciseID == "" {
		return "", err
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sets (id, client_id, workout_exercise_id, reps, weight, rpe, done_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		id, p.ClientID, exerciseID, p.Payload.Reps, p.Payload.Weight, p.Payload.RPE, createdAt, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert set: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE workout_exercises SET updated_at = ? WHERE id = ?`, now, exerciseID); err != nil {
		return "", fmt.Errorf("failed to touch exercise: %w", err)
	}

	return id, nil
}

func (s *Storage) applyUpdateSet(ctx context.Context, userID string, payload json.RawMessage, now time.Time) error {
	var p api.UpdateSetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode update-set payload: %w", err)
	}

	setID, err := s.findSetID(ctx, userID, setRef{
		SetClientID: p.SetClientID,
		ClientID:    p.ClientID,
		SetID:       p.SetID,
	})
	if err != nil || setID == "" {
		return err
	}

	// nil поле означает "не менять"
	if p.Updates.Reps != nil {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE sets SET reps = ? WHERE id = ?`, *p.Updates.Reps, setID); err != nil {
			return fmt.Errorf("failed to update set reps: %w", err)
		}
	}
	if p.Updates.Weight != nil {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE sets SET weight = ? WHERE id = ?`, *p.Updates.Weight, setID); err != nil {
			return fmt.Errorf("failed to update set weight: %w", err)
		}
	}
	if p.Updates.RPE != nil {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE sets SET rpe = ? WHERE id = ?`, *p.Updates.RPE, setID); err != nil {
			return fmt.Errorf("failed to update set rpe: %w", err)
		}
	}
	if p.Updates.DoneAtSet {
		// Явный null (или нулевое значение) сбрасывает отметку выполнения
		var doneAt interface{}
		if p.Updates.DoneAt != nil && *p.Updates.DoneAt > 0 {
			doneAt = time.UnixMilli(*p.Updates.DoneAt).UTC()
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE sets SET done_at = ? WHERE id = ?`, doneAt, setID); err != nil {
			return fmt.Errorf("failed to update set done_at: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE sets SET updated_at = ? WHERE id = ?`, now, setID); err != nil {
		return fmt.Errorf("failed to touch set: %w", err)
	}
	return nil
}

func (s *Storage) applyRemoveSet(ctx context.Context, userID string, payload json.RawMessage) error {
	var p api.RemoveSetPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to decode remove-set payload: %w", err)
	}

	setID, err := s.findSetID(ctx, userID, setRef{
		SetClientID: p.SetClientID,
		ClientID:    p.ClientID,
		SetID:       p.SetID,
	})
	if err != nil || setID == "" {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sets WHERE id = ?`, setID); err != nil {
		return fmt.Errorf("failed to remove set: %w", err)
	}
	return nil
}

func (s *Storage) recordEvent(ctx context.Context, userID, action string, payload json.RawMessage, createdAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_events (id, user_id, action, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, userID, action, string(payload), createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record sync event: %w", err)
	}
	return id, nil
}

// findWorkoutID находит тренировку пользователя по client_id,
// затем по server_id. Пустой результат без ошибки — не найдено.
func (s *Storage) findWorkoutID(ctx context.Context, userID string, ref workoutRef) (string, error) {
	clientID := ref.WorkoutClientID
	if clientID == "" {
		clientID = ref.ClientID
	}
	if clientID != "" {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM workouts WHERE client_id = ? AND user_id = ?`,
			clientID, userID,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to find workout by client_id: %w", err)
		}
	}

	serverID := ref.WorkoutServerID
	if serverID == "" {
		serverID = ref.WorkoutID
	}
	if serverID != "" {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM workouts WHERE id = ? AND user_id = ?`,
			serverID, userID,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to find workout by id: %w", err)
		}
	}

	return "", nil
}

func (s *Storage) findExerciseID(ctx context.Context, userID string, ref exerciseRef) (string, error) {
	clientID := ref.ExerciseClientID
	if clientID == "" {
		clientID = ref.ClientID
	}
	if clientID != "" {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT we.id FROM workout_exercises we
			 JOIN workouts w ON w.id = we.workout_id
			 WHERE we.client_id = ? AND w.user_id = ?`,
			clientID, userID,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to find exercise by client_id: %w", err)
		}
	}

	if ref.WorkoutExerciseID != "" {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT we.id FROM workout_exercises we
			 JOIN workouts w ON w.id = we.workout_id
			 WHERE we.id = ? AND w.user_id = ?`,
			ref.WorkoutExerciseID, userID,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to find exercise by id: %w", err)
		}
	}

	return "", nil
}

func (s *Storage) findSetID(ctx context.Context, userID string, ref setRef) (string, error) {
	clientID := ref.SetClientID
	if clientID == "" {
		clientID = ref.ClientID
	}
	if clientID != "" {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT st.id FROM sets st
			 JOIN workout_exercises we ON we.id = st.workout_exercise_id
			 JOIN workouts w ON w.id = we.workout_id
			 WHERE st.client_id = ? AND w.user_id = ?`,
			clientID, userID,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to find set by client_id: %w", err)
		}
	}

	if ref.SetID != "" {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT st.id FROM sets st
			 JOIN workout_exercises we ON we.id = st.workout_exercise_id
			 JOIN workouts w ON w.id = we.workout_id
			 WHERE st.id = ? AND w.user_id = ?`,
			ref.SetID, userID,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("failed to find set by id: %w", err)
		}
	}

	return "", nil
}

// WorkoutsUpdatedSince returns full workout graphs of the user updated
// strictly after the cutoff, tombstones included, ordered by updated_at
func (s *Storage) WorkoutsUpdatedSince(ctx context.Context, userID string, cutoff time.Time) ([]*models.ServerWorkoutGraph, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, user_id, title, status, created_at, updated_at, deleted_at
		 FROM workouts
		 WHERE user_id = ? AND updated_at > ?
		 ORDER BY updated_at ASC`,
		userID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query workouts: %w", err)
	}
	defer rows.Close()

	var graphs []*models.ServerWorkoutGraph
	for rows.Next() {
		var w models.ServerWorkout
		var clientID sql.NullString
		var deletedAt sql.NullTime

		if err := rows.Scan(&w.ID, &clientID, &w.UserID, &w.Title, &w.Status,
			&w.CreatedAt, &w.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}
		w.ClientID = clientID.String
		if deletedAt.Valid {
			w.DeletedAt = &deletedAt.Time
		}

		graphs = append(graphs, &models.ServerWorkoutGraph{Workout: w})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workouts: %w", err)
	}

	for _, g := range graphs {
		exercises, err := s.exercisesForWorkout(ctx, g.Workout.ID)
		if err != nil {
			return nil, err
		}
		g.Exercises = exercises
	}

	return graphs, nil
}

func (s *Storage) exercisesForWorkout(ctx context.Context, workoutID string) ([]models.ServerExerciseGraph, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, workout_id, exercise_id, order_index, planned_sets, created_at, updated_at
		 FROM workout_exercises
		 WHERE workout_id = ?
		 ORDER BY order_index ASC`,
		workoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query exercises: %w", err)
	}
	defer rows.Close()

	var exercises []models.ServerExerciseGraph
	for rows.Next() {
		var e models.ServerExercise
		var clientID sql.NullString
		var plannedSets sql.NullInt64

		if err := rows.Scan(&e.ID, &clientID, &e.WorkoutID, &e.ExerciseID,
			&e.OrderIndex, &plannedSets, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exercise: %w", err)
		}
		e.ClientID = clientID.String
		if plannedSets.Valid {
			planned := int(plannedSets.Int64)
			e.PlannedSets = &planned
		}

		exercises = append(exercises, models.ServerExerciseGraph{Exercise: e})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exercises: %w", err)
	}

	for i := range exercises {
		sets, err := s.setsForExercise(ctx, exercises[i].Exercise.ID)
		if err != nil {
			return nil, err
		}
		exercises[i].Sets = sets
	}

	return exercises, nil
}

func (s *Storage) setsForExercise(ctx context.Context, exerciseID string) ([]models.ServerSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, workout_exercise_id, reps, weight, rpe, done_at, created_at, updated_at
		 FROM sets
		 WHERE workout_exercise_id = ?
		 ORDER BY created_at ASC`,
		exerciseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sets: %w", err)
	}
	defer rows.Close()

	var sets []models.ServerSet
	for rows.Next() {
		var st models.ServerSet
		var clientID sql.NullString
		var weight, rpe sql.NullFloat64
		var doneAt sql.NullTime

		if err := rows.Scan(&st.ID, &clientID, &st.WorkoutExerciseID, &st.Reps,
			&weight, &rpe, &doneAt, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan set: %w", err)
		}
		st.ClientID = clientID.String
		if weight.Valid {
			st.Weight = &weight.Float64
		}
		if rpe.Valid {
			st.RPE = &rpe.Float64
		}
		if doneAt.Valid {
			st.DoneAt = &doneAt.Time
		}

		sets = append(sets, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sets: %w", err)
	}

	return sets, nil
}

// msToTime переводит unix миллисекунды клиента в UTC время.
// Нулевое или отрицательное значение означает "не передано".
func msToTime(ms int64, fallback time.Time) time.Time {
	if ms <= 0 {
		return fallback
	}
	return time.UnixMilli(ms).UTC()
}
