package models

import "time"

// Серверные записи тренировок. В отличие от клиентских структур здесь
// время хранится как time.Time (UTC в базе), а идентификаторы всегда
// серверные UUID; client_id остается только для корреляции с клиентом.

// ServerWorkout — тренировка в серверной базе.
// DeletedAt != nil означает tombstone: запись остается и отдается
// клиентам событием workout-delete, чтобы удаление доехало на все
// устройства.
type ServerWorkout struct {
	ID        string
	ClientID  string
	UserID    string
	Title     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// ServerExercise — упражнение внутри серверной тренировки
type ServerExercise struct {
	ID          string
	ClientID    string
	WorkoutID   string
	ExerciseID  string
	OrderIndex  int
	PlannedSets *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ServerSet — подход внутри серверного упражнения
type ServerSet struct {
	ID                string
	ClientID          string
	WorkoutExerciseID string
	Reps              int
	Weight            *float64
	RPE               *float64
	DoneAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ServerExerciseGraph — упражнение вместе с его подходами
type ServerExerciseGraph struct {
	Exercise ServerExercise
	Sets     []ServerSet
}

// ServerWorkoutGraph — тренировка с полным вложенным графом.
// Именно в таком виде pull сериализует событие workout-upsert.
type ServerWorkoutGraph struct {
	Workout   ServerWorkout
	Exercises []ServerExerciseGraph
}

// Share — факт публичного шаринга тренировки
type Share struct {
	ID        string
	WorkoutID string
	UserID    string
	CreatedAt time.Time
}
