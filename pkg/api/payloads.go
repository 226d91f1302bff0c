package api

import "encoding/json"

// Payload-структуры мутаций. Имена полей повторяют то, что клиент кладет
// в outbox: server_id целевой записи (если уже известен) плюс client_id
// для корреляции, пока server_id не присвоен.

// CreateWorkoutPayload — payload мутации create-workout
type CreateWorkoutPayload struct {
	ClientID  string `json:"client_id"`
	UserID    string `json:"user_id,omitempty"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// WorkoutRefPayload — payload мутаций, адресующих существующую тренировку
// (update-title, complete-workout, delete-workout)
type WorkoutRefPayload struct {
	WorkoutID       string `json:"workoutId,omitempty"` // server_id, если известен
	WorkoutClientID string `json:"workoutClientId,omitempty"`
	ClientID        string `json:"client_id,omitempty"`
	Title           string `json:"title,omitempty"`
	UpdatedAt       int64  `json:"updated_at,omitempty"`
	DeletedAt       int64  `json:"deleted_at,omitempty"`
}

// AddExercisePayload — payload мутации add-exercise
type AddExercisePayload struct {
	WorkoutID       string `json:"workoutId,omitempty"`
	WorkoutClientID string `json:"workoutClientId,omitempty"`
	WorkoutServerID string `json:"workoutServerId,omitempty"`
	ExerciseID      string `json:"exerciseId"`
	OrderIndex      int    `json:"orderIndex"`
	PlannedSets     *int   `json:"plannedSets"`
	ClientID        string `json:"client_id"`
}

// ExerciseRefPayload — payload мутаций update-exercise-plan и remove-exercise
type ExerciseRefPayload struct {
	WorkoutExerciseID string `json:"workoutExerciseId,omitempty"`
	ExerciseClientID  string `json:"exerciseClientId,omitempty"`
	ClientID          string `json:"client_id,omitempty"`
	PlannedSets       *int   `json:"plannedSets,omitempty"`
}

// SetValues — значения подхода внутри add-set
type SetValues struct {
	Reps   int      `json:"reps"`
	Weight *float64 `json:"weight"`
	RPE    *float64 `json:"rpe"`
}

// AddSetPayload — payload мутации add-set
type AddSetPayload struct {
	WorkoutExerciseID string    `json:"workoutExerciseId,omitempty"`
	ExerciseClientID  string    `json:"exerciseClientId,omitempty"`
	ClientID          string    `json:"client_id"`
	Payload           SetValues `json:"payload"`
}

// SetUpdates — частичное обновление подхода; отсутствующий ключ означает
// "не менять". done_at сериализуется presence-aware: явный null сбрасывает
// отметку выполнения, поэтому omitempty здесь не годится.
type SetUpdates struct {
	Reps   *int
	Weight *float64
	RPE    *float64
	DoneAt *int64
	// DoneAtSet означает, что ключ done_at присутствует в JSON
	// (в том числе как null)
	DoneAtSet bool
}

// MarshalJSON пишет только присутствующие поля; done_at пишется и как null,
// когда он сбрасывается
func (u SetUpdates) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4)
	if u.Reps != nil {
		out["reps"] = *u.Reps
	}
	if u.Weight != nil {
		out["weight"] = *u.Weight
	}
	if u.RPE != nil {
		out["rpe"] = *u.RPE
	}
	if u.DoneAtSet || u.DoneAt != nil {
		if u.DoneAt != nil {
			out["done_at"] = *u.DoneAt
		} else {
			out["done_at"] = nil
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON восстанавливает присутствие ключа done_at, различая
// "ключа нет" и "ключ есть со значением null"
func (u *SetUpdates) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["reps"]; ok {
		if err := json.Unmarshal(v, &u.Reps); err != nil {
			return err
		}
	}
	if v, ok := raw["weight"]; ok {
		if err := json.Unmarshal(v, &u.Weight); err != nil {
			return err
		}
	}
	if v, ok := raw["rpe"]; ok {
		if err := json.Unmarshal(v, &u.RPE); err != nil {
			return err
		}
	}
	if v, ok := raw["done_at"]; ok {
		u.DoneAtSet = true
		if err := json.Unmarshal(v, &u.DoneAt); err != nil {
			return err
		}
	}
	return nil
}

// UpdateSetPayload — payload мутации update-set
type UpdateSetPayload struct {
	SetID       string     `json:"setId,omitempty"`
	SetClientID string     `json:"setClientId,omitempty"`
	ClientID    string     `json:"client_id,omitempty"`
	Updates     SetUpdates `json:"updates"`
}

// RemoveSetPayload — payload мутации remove-set
type RemoveSetPayload struct {
	SetID       string `json:"setId,omitempty"`
	SetClientID string `json:"setClientId,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
}

// SharePayload — payload мутации share-workout
type SharePayload struct {
	WorkoutID string `json:"workoutId"`
	UserID    string `json:"userId"`
}
