package models

// Статусы тренировки
const (
	WorkoutStatusDraft     = "draft"
	WorkoutStatusCompleted = "completed"
)

// Workout представляет тренировку в локальном хранилище.
// LocalID стабилен только в пределах жизни локальной БД; ClientID назначается
// один раз при создании и служит ключом корреляции с серверной записью;
// ServerID появляется после первого подтверждения сервером и больше не меняется.
type Workout struct {
	LocalID   uint64 `json:"local_id"`
	ClientID  string `json:"client_id"`
	ServerID  string `json:"server_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"` // unix миллисекунды
	UpdatedAt int64  `json:"updated_at"`
}

// WorkoutExercise представляет упражнение внутри тренировки
type WorkoutExercise struct {
	LocalID     uint64 `json:"local_id"`
	ClientID    string `json:"client_id"`
	ServerID    string `json:"server_id,omitempty"`
	WorkoutID   uint64 `json:"workout_id"`
	ExerciseID  string `json:"exercise_id"`
	OrderIndex  int    `json:"order_index"`
	PlannedSets *int   `json:"planned_sets"`
	CreatedAt   int64  `json:"created_at"`
}

// WorkoutSet представляет один подход упражнения
type WorkoutSet struct {
	LocalID           uint64   `json:"local_id"`
	ClientID          string   `json:"client_id"`
	ServerID          string   `json:"server_id,omitempty"`
	WorkoutExerciseID uint64   `json:"workout_exercise_id"`
	Reps              int      `json:"reps"`
	Weight            *float64 `json:"weight"`
	RPE               *float64 `json:"rpe"`
	DoneAt            *int64   `json:"done_at"` // unix миллисекунды
	CreatedAt         int64    `json:"created_at"`
}

// WorkoutWithRelations — тренировка вместе с её упражнениями и подходами.
// Именно в таком виде её читает UI и движок синхронизации.
type WorkoutWithRelations struct {
	Workout   Workout
	Exercises []WorkoutExercise
	Sets      []WorkoutSet
}

// Addressable возвращает идентификатор, по которому запись адресуется
// на сервере: server_id если он уже присвоен, иначе client_id
func (w *Workout) Addressable() string {
	if w.ServerID != "" {
		return w.ServerID
	}
	return w.ClientID
}

// SetsForExercise возвращает подходы, принадлежащие упражнению,
// в порядке создания
func (wr *WorkoutWithRelations) SetsForExercise(exerciseLocalID uint64) []WorkoutSet {
	var sets []WorkoutSet
	for _, s := range wr.Sets {
		if s.WorkoutExerciseID == exerciseLocalID {
			sets = append(sets, s)
		}
	}
	return sets
}
