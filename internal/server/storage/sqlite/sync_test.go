package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoisin/gymsync/internal/models"
	"github.com/nvoisin/gymsync/pkg/api"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// создает пользователя и тренировку, возвращает (userID, workoutServerID)
func seedWorkout(t *testing.T, s *Storage, clientID string) (string, string) {
	t.Helper()
	ctx := context.Background()

	user := newTestUser("nico-" + uuid.New().String()[:8])
	require.NoError(t, s.CreateUser(ctx, user))

	serverID, err := s.ApplyMutation(ctx, user.ID, api.ActionCreateWorkout,
		mustJSON(t, api.CreateWorkoutPayload{
			ClientID: clientID,
			Title:    "Leg Day",
			Status:   models.WorkoutStatusDraft,
		}), time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, serverID)

	return user.ID, serverID
}

func pullAll(t *testing.T, s *Storage, userID string) []*models.ServerWorkoutGraph {
	t.Helper()
	graphs, err := s.WorkoutsUpdatedSince(context.Background(), userID, time.Unix(0, 0))
	require.NoError(t, err)
	return graphs
}

func TestApplyMutation_CreateWorkoutDedupByClientID(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, serverID := seedWorkout(t, s, "cw-1")

	// Повторный push той же мутации не создает дубликат
	again, err := s.ApplyMutation(ctx, userID, api.ActionCreateWorkout,
		mustJSON(t, api.CreateWorkoutPayload{ClientID: "cw-1", Title: "Leg Day"}), time.Now())
	require.NoError(t, err)
	assert.Equal(t, serverID, again)

	graphs := pullAll(t, s, userID)
	require.Len(t, graphs, 1)
	assert.Equal(t, "Leg Day", graphs[0].Workout.Title)
	assert.Equal(t, "cw-1", graphs[0].Workout.ClientID)
}

func TestApplyMutation_UpdateTitleByClientID(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, _ := seedWorkout(t, s, "cw-1")

	_, err := s.ApplyMutation(ctx, userID, api.ActionUpdateTitle,
		mustJSON(t, api.WorkoutRefPayload{ClientID: "cw-1", Title: "Push Day"}), time.Now())
	require.NoError(t, err)

	graphs := pullAll(t, s, userID)
	require.Len(t, graphs, 1)
	assert.Equal(t, "Push Day", graphs[0].Workout.Title)
}

func TestApplyMutation_CompleteAndDeleteWorkout(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, serverID := seedWorkout(t, s, "cw-1")

	_, err := s.ApplyMutation(ctx, userID, api.ActionCompleteWorkout,
		mustJSON(t, api.WorkoutRefPayload{WorkoutID: serverID}), time.Now())
	require.NoError(t, err)

	graphs := pullAll(t, s, userID)
	require.Len(t, graphs, 1)
	assert.Equal(t, models.WorkoutStatusCompleted, graphs[0].Workout.Status)

	_, err = s.ApplyMutation(ctx, userID, api.ActionDeleteWorkout,
		mustJSON(t, api.WorkoutRefPayload{WorkoutID: serverID}), time.Now())
	require.NoError(t, err)

	// Tombstone остается и отдается в pull
	graphs = pullAll(t, s, userID)
	require.Len(t, graphs, 1)
	assert.NotNil(t, graphs[0].Workout.DeletedAt)
}

func TestApplyMutation_GraphBuild(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, _ := seedWorkout(t, s, "cw-1")

	planned := 3
	exID, err := s.ApplyMutation(ctx, userID, api.ActionAddExercise,
		mustJSON(t, api.AddExercisePayload{
			WorkoutClientID: "cw-1",
			ClientID:        "ex-1",
			ExerciseID:      "squat",
			OrderIndex:      0,
			PlannedSets:     &planned,
		}), time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, exID)

	weight := 100.0
	setID, err := s.ApplyMutation(ctx, userID, api.ActionAddSet,
		mustJSON(t, api.AddSetPayload{
			ExerciseClientID: "ex-1",
			ClientID:         "set-1",
			Payload:          api.SetValues{Reps: 5, Weight: &weight},
		}), time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, setID)

	graphs := pullAll(t, s, userID)
	require.Len(t, graphs, 1)
	require.Len(t, graphs[0].Exercises, 1)

	ex := graphs[0].Exercises[0]
	assert.Equal(t, "squat", ex.Exercise.ExerciseID)
	assert.Equal(t, "ex-1", ex.Exercise.ClientID)
	require.NotNil(t, ex.Exercise.PlannedSets)
	assert.Equal(t, 3, *ex.Exercise.PlannedSets)

	require.Len(t, ex.Sets, 1)
	assert.Equal(t, 5, ex.Sets[0].Reps)
	require.NotNil(t, ex.Sets[0].Weight)
	assert.Equal(t, 100.0, *ex.Sets[0].Weight)
	assert.Nil(t, ex.Sets[0].DoneAt)
}

func TestApplyMutation_AddExerciseDedupByClientID(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, _ := seedWorkout(t, s, "cw-1")

	payload := mustJSON(t, api.AddExercisePayload{
		WorkoutClientID: "cw-1",
		ClientID:        "ex-1",
		ExerciseID:      "squat",
	})

	first, err := s.ApplyMutation(ctx, userID, api.ActionAddExercise, payload, time.Now())
	require.NoError(t, err)

	second, err := s.ApplyMutation(ctx, userID, api.ActionAddExercise, payload, time.Now())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	graphs := pullAll(t, s, userID)
	require.Len(t, graphs[0].Exercises, 1)
}

func TestApplyMutation_UpdateSetPartial(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, _ := seedWorkout(t, s, "cw-1")

	_, err := s.ApplyMutation(ctx, userID, api.ActionAddExercise,
		mustJSON(t, api.AddExercisePayload{WorkoutClientID: "cw-1", ClientID: "ex-1", ExerciseID: "squat"}), time.Now())
	require.NoError(t, err)

	weight := 100.0
	_, err = s.ApplyMutation(ctx, userID, api.ActionAddSet,
		mustJSON(t, api.AddSetPayload{
			ExerciseClientID: "ex-1",
			ClientID:         "set-1",
			Payload:          api.SetValues{Reps: 5, Weight: &weight},
		}), time.Now())
	require.NoError(t, err)

	// Меняем только reps и done_at; weight должен остаться
	reps := 8
	doneAt := time.Now().UnixMilli()
	_, err = s.ApplyMutation(ctx, userID, api.ActionUpdateSet,
		mustJSON(t, api.UpdateSetPayload{
			SetClientID: "set-1",
			Updates:     api.SetUpdates{Reps: &reps, DoneAt: &doneAt},
		}), time.Now())
	require.NoError(t, err)

	graphs := pullAll(t, s, userID)
	set := graphs[0].Exercises[0].Sets[0]
	assert.Equal(t, 8, set.Reps)
	require.NotNil(t, set.Weight)
	assert.Equal(t, 100.0, *set.Weight)
	require.NotNil(t, set.DoneAt)
}

func TestApplyMutation_UpdateSetClearsDoneAt(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, _ := seedWorkout(t, s, "cw-1")

	_, err := s.ApplyMutation(ctx, userID, api.ActionAddExercise,
		mustJSON(t, api.AddExercisePayload{WorkoutClientID: "cw-1", ClientID: "ex-1", ExerciseID: "squat"}), time.Now())
	require.NoError(t, err)

	_, err = s.ApplyMutation(ctx, userID, api.ActionAddSet,
		mustJSON(t, api.AddSetPayload{
			ExerciseClientID: "ex-1",
			ClientID:         "set-1",
			Payload:          api.SetValues{Reps: 5},
		}), time.Now())
	require.NoError(t, err)

	doneAt := time.Now().UnixMilli()
	_, err = s.ApplyMutation(ctx, userID, api.ActionUpdateSet,
		mustJSON(t, api.UpdateSetPayload{
			SetClientID: "set-1",
			Updates:     api.SetUpdates{DoneAt: &doneAt, DoneAtSet: true},
		}), time.Now())
	require.NoError(t, err)

	graphs := pullAll(t, s, userID)
	require.NotNil(t, graphs[0].Exercises[0].Sets[0].DoneAt)

	// Явный null снимает отметку выполнения
	_, err = s.ApplyMutation(ctx, userID, api.ActionUpdateSet,
		json.RawMessage(`{"setClientId":"set-1","updates":{"done_at":null}}`), time.Now())
	require.NoError(t, err)

	graphs = pullAll(t, s, userID)
	set := graphs[0].Exercises[0].Sets[0]
	assert.Nil(t, set.DoneAt)
	// reps не трогали
	assert.Equal(t, 5, set.Reps)
}

func TestApplyMutation_RemoveExerciseCascadesSets(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, _ := seedWorkout(t, s, "cw-1")

	_, err := s.ApplyMutation(ctx, userID, api.ActionAddExercise,
		mustJSON(t, api.AddExercisePayload{WorkoutClientID: "cw-1", ClientID: "ex-1", ExerciseID: "squat"}), time.Now())
	require.NoError(t, err)

	_, err = s.ApplyMutation(ctx, userID, api.ActionAddSet,
		mustJSON(t, api.AddSetPayload{
			ExerciseClientID: "ex-1",
			ClientID:         "set-1",
			Payload:          api.SetValues{Reps: 5},
		}), time.Now())
	require.NoError(t, err)

	_, err = s.ApplyMutation(ctx, userID, api.ActionRemoveExercise,
		mustJSON(t, api.ExerciseRefPayload{ExerciseClientID: "ex-1"}), time.Now())
	require.NoError(t, err)

	graphs := pullAll(t, s, userID)
	assert.Empty(t, graphs[0].Exercises)

	var setCount int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM sets`).Scan(&setCount))
	assert.Zero(t, setCount)
}

func TestApplyMutation_MissingTargetIsDroppedSilently(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, _ := seedWorkout(t, s, "cw-1")

	serverID, err := s.ApplyMutation(ctx, userID, api.ActionUpdateTitle,
		mustJSON(t, api.WorkoutRefPayload{ClientID: "ghost", Title: "X"}), time.Now())
	require.NoError(t, err)
	assert.Empty(t, serverID)
}

func TestApplyMutation_IgnoresOtherUsersWorkouts(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	_, _ = seedWorkout(t, s, "cw-1")

	intruder := newTestUser("intruder")
	require.NoError(t, s.CreateUser(ctx, intruder))

	_, err := s.ApplyMutation(ctx, intruder.ID, api.ActionUpdateTitle,
		mustJSON(t, api.WorkoutRefPayload{ClientID: "cw-1", Title: "hacked"}), time.Now())
	require.NoError(t, err)

	// Владелец видит нетронутый title
	var title string
	require.NoError(t, s.DB().QueryRow(`SELECT title FROM workouts WHERE client_id = 'cw-1'`).Scan(&title))
	assert.Equal(t, "Leg Day", title)
}

func TestApplyMutation_UnknownActionIsRecorded(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, _ := seedWorkout(t, s, "cw-1")

	eventID, err := s.ApplyMutation(ctx, userID, "start-timer",
		json.RawMessage(`{"seconds":90}`), time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, eventID)

	var action, payload string
	require.NoError(t, s.DB().QueryRow(
		`SELECT action, payload FROM sync_events WHERE id = ?`, eventID).Scan(&action, &payload))
	assert.Equal(t, "start-timer", action)
	assert.JSONEq(t, `{"seconds":90}`, payload)
}

func TestWorkoutsUpdatedSince_CutoffIsStrict(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)

	userID, _ := seedWorkout(t, s, "cw-1")

	graphs := pullAll(t, s, userID)
	require.Len(t, graphs, 1)

	// Курсор на updated_at последней записи: ничего нового
	later, err := s.WorkoutsUpdatedSince(ctx, userID, graphs[0].Workout.UpdatedAt)
	require.NoError(t, err)
	assert.Empty(t, later)
}
