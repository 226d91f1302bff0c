package api

import "encoding/json"

// Действия мутаций, известные серверу. Клиент пишет их в outbox как есть.
const (
	ActionCreateWorkout      = "create-workout"
	ActionUpdateTitle        = "update-title"
	ActionAddExercise        = "add-exercise"
	ActionUpdateExercisePlan = "update-exercise-plan"
	ActionRemoveExercise     = "remove-exercise"
	ActionAddSet             = "add-set"
	ActionUpdateSet          = "update-set"
	ActionRemoveSet          = "remove-set"
	ActionDeleteWorkout      = "delete-workout"
	ActionCompleteWorkout    = "complete-workout"
	ActionShareWorkout       = "share-workout"
)

// Действия событий, которые сервер отдает при pull
const (
	EventWorkoutUpsert = "workout-upsert"
	EventWorkoutDelete = "workout-delete"
)

// PushMutation представляет одну мутацию из локальной очереди
type PushMutation struct {
	QueueID   uint64          `json:"queue_id"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"` // unix миллисекунды
}

// PushRequest представляет запрос на отправку локальных мутаций
type PushRequest struct {
	Mutations []PushMutation `json:"mutations"`
}

// MutationResult содержит server_id, присвоенный create-мутации
type MutationResult struct {
	QueueID  uint64 `json:"queue_id"`
	ServerID string `json:"server_id"`
}

// PushResponse представляет ответ сервера на push
type PushResponse struct {
	Results    []MutationResult `json:"results"`
	ServerTime string           `json:"server_time"` // RFC3339
	Processed  int              `json:"processed"`
}

// RemoteEvent представляет одно изменение на сервере
type RemoteEvent struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// PullResponse представляет ответ сервера на pull
type PullResponse struct {
	Events     []RemoteEvent `json:"events"`
	ServerTime string        `json:"server_time"` // RFC3339
}

// RemoteWorkout — payload события workout-upsert / workout-delete.
// Exercises присутствует только когда сервер отдает полный граф.
type RemoteWorkout struct {
	ServerID  string           `json:"server_id"`
	ClientID  string           `json:"client_id,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	Title     string           `json:"title"`
	Status    string           `json:"status"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
	DeletedAt string           `json:"deleted_at,omitempty"`
	Exercises []RemoteExercise `json:"exercises,omitempty"`
}

// RemoteExercise — вложенное упражнение в событии workout-upsert
type RemoteExercise struct {
	ServerID    string      `json:"server_id"`
	ClientID    string      `json:"client_id,omitempty"`
	ExerciseID  string      `json:"exercise_id"`
	OrderIndex  int         `json:"order_index"`
	PlannedSets *int        `json:"planned_sets"`
	Sets        []RemoteSet `json:"sets"`
}

// RemoteSet — вложенный подход в событии workout-upsert
type RemoteSet struct {
	ServerID string   `json:"server_id"`
	ClientID string   `json:"client_id,omitempty"`
	Reps     int      `json:"reps"`
	Weight   *float64 `json:"weight"`
	RPE      *float64 `json:"rpe"`
	DoneAt   string   `json:"done_at,omitempty"`
}
