package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/nvoisin/gymsync/internal/client/storage"
	"github.com/nvoisin/gymsync/internal/models"
)

// CreateWorkout creates a workout and assigns local_id and client_id
func (s *Storage) CreateWorkout(ctx context.Context, nw storage.NewWorkout) (*models.Workout, error) {
	clientID := nw.ClientID
	if clientID == "" {
		clientID = uuid.New().String()
	}
	status := nw.Status
	if status == "" {
		status = models.WorkoutStatusDraft
	}

	now := nowMillis()
	workout := &models.Workout{
		ClientID:  clientID,
		ServerID:  nw.ServerID,
		UserID:    nw.UserID,
		Title:     nw.Title,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketWorkouts)
		if bucket == nil {
			return fmt.Errorf("workouts bucket not found")
		}

		id, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to generate local id: %w", err)
		}
		workout.LocalID = id

		return putJSON(bucket, itob(id), workout)
	})
	if err != nil {
		return nil, err
	}

	return workout, nil
}

// GetWorkout retrieves a workout by local_id
func (s *Storage) GetWorkout(ctx context.Context, localID uint64) (*models.Workout, error) {
	var workout *models.Workout

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketWorkouts)
		if bucket == nil {
			return fmt.Errorf("workouts bucket not found")
		}

		data := bucket.Get(itob(localID))
		if data == nil {
			return storage.ErrWorkoutNotFound
		}

		workout = &models.Workout{}
		if err := json.Unmarshal(data, workout); err != nil {
			return fmt.Errorf("failed to unmarshal workout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return workout, nil
}

// ListWorkouts returns all workouts with their exercises and sets
func (s *Storage) ListWorkouts(ctx context.Context) ([]*models.WorkoutWithRelations, error) {
	var result []*models.WorkoutWithRelations

	err := s.db.View(func(tx *bbolt.Tx) error {
		workouts := tx.Bucket(bucketWorkouts)
		exercises := tx.Bucket(bucketExercises)
		sets := tx.Bucket(bucketSets)
		if workouts == nil || exercises == nil || sets == nil {
			return fmt.Errorf("workout buckets not found")
		}

		// Группируем упражнения и подходы по владельцам за один проход
		exercisesByWorkout := make(map[uint64][]models.WorkoutExercise)
		if err := exercises.ForEach(func(k, v []byte) error {
			var ex models.WorkoutExercise
			if err := json.Unmarshal(v, &ex); err != nil {
				return fmt.Errorf("failed to unmarshal exercise: %w", err)
			}
			exercisesByWorkout[ex.WorkoutID] = append(exercisesByWorkout[ex.WorkoutID], ex)
			return nil
		}); err != nil {
			return err
		}

		setsByExercise := make(map[uint64][]models.WorkoutSet)
		if err := sets.ForEach(func(k, v []byte) error {
			var ws models.WorkoutSet
			if err := json.Unmarshal(v, &ws); err != nil {
				return fmt.Errorf("failed to unmarshal set: %w", err)
			}
			setsByExercise[ws.WorkoutExerciseID] = append(setsByExercise[ws.WorkoutExerciseID], ws)
			return nil
		}); err != nil {
			return err
		}

		return workouts.ForEach(func(k, v []byte) error {
			var w models.Workout
			if err := json.Unmarshal(v, &w); err != nil {
				return fmt.Errorf("failed to unmarshal workout: %w", err)
			}

			wr := &models.WorkoutWithRelations{Workout: w}
			wr.Exercises = exercisesByWorkout[w.LocalID]
			sort.Slice(wr.Exercises, func(i, j int) bool {
				if wr.Exercises[i].OrderIndex != wr.Exercises[j].OrderIndex {
					return wr.Exercises[i].OrderIndex < wr.Exercises[j].OrderIndex
				}
				return wr.Exercises[i].LocalID < wr.Exercises[j].LocalID
			})
			for _, ex := range wr.Exercises {
				wr.Sets = append(wr.Sets, setsByExercise[ex.LocalID]...)
			}
			sort.Slice(wr.Sets, func(i, j int) bool {
				return wr.Sets[i].LocalID < wr.Sets[j].LocalID
			})

			result = append(result, wr)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateWorkoutTitle updates the title of a workout
func (s *Storage) UpdateWorkoutTitle(ctx context.Context, localID uint64, title string) error {
	return s.updateWorkout(localID, func(w *models.Workout) {
		w.Title = title
	})
}

// UpdateWorkoutStatus updates the status of a workout
func (s *Storage) UpdateWorkoutStatus(ctx context.Context, localID uint64, status string) error {
	return s.updateWorkout(localID, func(w *models.Workout) {
		w.Status = status
	})
}

// DeleteWorkout removes a workout together with its exercises and sets
func (s *Storage) DeleteWorkout(ctx context.Context, localID uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		workouts := tx.Bucket(bucketWorkouts)
		if workouts == nil {
			return fmt.Errorf("workouts bucket not found")
		}

		if workouts.Get(itob(localID)) == nil {
			return storage.ErrWorkoutNotFound
		}

		if err := deleteGraph(tx, localID); err != nil {
			return err
		}

		if err := workouts.Delete(itob(localID)); err != nil {
			return fmt.Errorf("failed to delete workout: %w", err)
		}
		return nil
	})
}

// CreateExercise adds an exercise to a workout
func (s *Storage) CreateExercise(ctx context.Context, ne storage.NewExercise) (*models.WorkoutExercise, error) {
	clientID := ne.ClientID
	if clientID == "" {
		clientID = uuid.New().String()
	}

	exercise := &models.WorkoutExercise{
		ClientID:    clientID,
		ServerID:    ne.ServerID,
		WorkoutID:   ne.WorkoutID,
		ExerciseID:  ne.ExerciseID,
		OrderIndex:  ne.OrderIndex,
		PlannedSets: ne.PlannedSets,
		CreatedAt:   nowMillis(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		workouts := tx.Bucket(bucketWorkouts)
		if workouts == nil || workouts.Get(itob(ne.WorkoutID)) == nil {
			return storage.ErrWorkoutNotFound
		}

		bucket := tx.Bucket(bucketExercises)
		if bucket == nil {
			return fmt.Errorf("exercises bucket not found")
		}

		id, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to generate local id: %w", err)
		}
		exercise.LocalID = id

		return putJSON(bucket, itob(id), exercise)
	})
	if err != nil {
		return nil, err
	}

	return exercise, nil
}

// UpdateExercisePlan updates planned sets of an exercise
func (s *Storage) UpdateExercisePlan(ctx context.Context, localID uint64, plannedSets *int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketExercises)
		if bucket == nil {
			return fmt.Errorf("exercises bucket not found")
		}

		data := bucket.Get(itob(localID))
		if data == nil {
			return storage.ErrExerciseNotFound
		}

		var ex models.WorkoutExercise
		if err := json.Unmarshal(data, &ex); err != nil {
			return fmt.Errorf("failed to unmarshal exercise: %w", err)
		}

		ex.PlannedSets = plannedSets
		return putJSON(bucket, itob(localID), &ex)
	})
}

// DeleteExercise removes an exercise and its sets
func (s *Storage) DeleteExercise(ctx context.Context, localID uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketExercises)
		if bucket == nil {
			return fmt.Errorf("exercises bucket not found")
		}

		if bucket.Get(itob(localID)) == nil {
			return storage.ErrExerciseNotFound
		}

		if err := deleteSetsOfExercise(tx, localID); err != nil {
			return err
		}

		if err := bucket.Delete(itob(localID)); err != nil {
			return fmt.Errorf("failed to delete exercise: %w", err)
		}
		return nil
	})
}

// CreateSet adds a set to an exercise
func (s *Storage) CreateSet(ctx context.Context, ns storage.NewSet) (*models.WorkoutSet, error) {
	clientID := ns.ClientID
	if clientID == "" {
		clientID = uuid.New().String()
	}

	set := &models.WorkoutSet{
		ClientID:          clientID,
		ServerID:          ns.ServerID,
		WorkoutExerciseID: ns.WorkoutExerciseID,
		Reps:              ns.Reps,
		Weight:            ns.Weight,
		RPE:               ns.RPE,
		DoneAt:            ns.DoneAt,
		CreatedAt:         nowMillis(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		exercises := tx.Bucket(bucketExercises)
		if exercises == nil || exercises.Get(itob(ns.WorkoutExerciseID)) == nil {
			return storage.ErrExerciseNotFound
		}

		bucket := tx.Bucket(bucketSets)
		if bucket == nil {
			return fmt.Errorf("sets bucket not found")
		}

		id, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to generate local id: %w", err)
		}
		set.LocalID = id

		return putJSON(bucket, itob(id), set)
	})
	if err != nil {
		return nil, err
	}

	return set, nil
}

// UpdateSet applies a partial update to a set
func (s *Storage) UpdateSet(ctx context.Context, localID uint64, updates storage.SetUpdates) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSets)
		if bucket == nil {
			return fmt.Errorf("sets bucket not found")
		}

		data := bucket.Get(itob(localID))
		if data == nil {
			return storage.ErrSetNotFound
		}

		var set models.WorkoutSet
		if err := json.Unmarshal(data, &set); err != nil {
			return fmt.Errorf("failed to unmarshal set: %w", err)
		}

		if updates.Reps != nil {
			set.Reps = *updates.Reps
		}
		if updates.Weight != nil {
			set.Weight = updates.Weight
		}
		if updates.RPE != nil {
			set.RPE = updates.RPE
		}
		if updates.DoneAtSet {
			set.DoneAt = updates.DoneAt
		}

		return putJSON(bucket, itob(localID), &set)
	})
}

// DeleteSet removes a set
func (s *Storage) DeleteSet(ctx context.Context, localID uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSets)
		if bucket == nil {
			return fmt.Errorf("sets bucket not found")
		}

		if bucket.Get(itob(localID)) == nil {
			return storage.ErrSetNotFound
		}

		if err := bucket.Delete(itob(localID)); err != nil {
			return fmt.Errorf("failed to delete set: %w", err)
		}
		return nil
	})
}

// DeleteWorkoutGraph removes all exercises and sets of a workout
func (s *Storage) DeleteWorkoutGraph(ctx context.Context, workoutLocalID uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteGraph(tx, workoutLocalID)
	})
}

// AssignWorkoutServerID writes the acknowledged server_id onto the workout
// matched by client_id. server_id присваивается один раз и не перезаписывается.
func (s *Storage) AssignWorkoutServerID(ctx context.Context, clientID, serverID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketWorkouts)
		if bucket == nil {
			return fmt.Errorf("workouts bucket not found")
		}

		key, found, err := findByClientID(bucket, clientID, func(v []byte) (string, string, error) {
			var w models.Workout
			if err := json.Unmarshal(v, &w); err != nil {
				return "", "", fmt.Errorf("failed to unmarshal workout: %w", err)
			}
			return w.ClientID, w.ServerID, nil
		})
		if err != nil || key == nil || found != "" {
			return err
		}

		var w models.Workout
		if err := json.Unmarshal(bucket.Get(key), &w); err != nil {
			return fmt.Errorf("failed to unmarshal workout: %w", err)
		}
		w.ServerID = serverID
		return putJSON(bucket, key, &w)
	})
}

// AssignExerciseServerID writes the acknowledged server_id onto the exercise
// matched by client_id
func (s *Storage) AssignExerciseServerID(ctx context.Context, clientID, serverID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketExercises)
		if bucket == nil {
			return fmt.Errorf("exercises bucket not found")
		}

		key, found, err := findByClientID(bucket, clientID, func(v []byte) (string, string, error) {
			var ex models.WorkoutExercise
			if err := json.Unmarshal(v, &ex); err != nil {
				return "", "", fmt.Errorf("failed to unmarshal exercise: %w", err)
			}
			return ex.ClientID, ex.ServerID, nil
		})
		if err != nil || key == nil || found != "" {
			return err
		}

		var ex models.WorkoutExercise
		if err := json.Unmarshal(bucket.Get(key), &ex); err != nil {
			return fmt.Errorf("failed to unmarshal exercise: %w", err)
		}
		ex.ServerID = serverID
		return putJSON(bucket, key, &ex)
	})
}

// AssignSetServerID writes the acknowledged server_id onto the set
// matched by client_id
func (s *Storage) AssignSetServerID(ctx context.Context, clientID, serverID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketSets)
		if bucket == nil {
			return fmt.Errorf("sets bucket not found")
		}

		key, found, err := findByClientID(bucket, clientID, func(v []byte) (string, string, error) {
			var set models.WorkoutSet
			if err := json.Unmarshal(v, &set); err != nil {
				return "", "", fmt.Errorf("failed to unmarshal set: %w", err)
			}
			return set.ClientID, set.ServerID, nil
		})
		if err != nil || key == nil || found != "" {
			return err
		}

		var set models.WorkoutSet
		if err := json.Unmarshal(bucket.Get(key), &set); err != nil {
			return fmt.Errorf("failed to unmarshal set: %w", err)
		}
		set.ServerID = serverID
		return putJSON(bucket, key, &set)
	})
}

// updateWorkout применяет mutate к тренировке и обновляет updated_at
func (s *Storage) updateWorkout(localID uint64, mutate func(*models.Workout)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketWorkouts)
		if bucket == nil {
			return fmt.Errorf("workouts bucket not found")
		}

		data := bucket.Get(itob(localID))
		if data == nil {
			return storage.ErrWorkoutNotFound
		}

		var w models.Workout
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("failed to unmarshal workout: %w", err)
		}

		mutate(&w)
		w.UpdatedAt = nowMillis()
		return putJSON(bucket, itob(localID), &w)
	})
}

// deleteGraph удаляет все упражнения и подходы тренировки в рамках транзакции
func deleteGraph(tx *bbolt.Tx, workoutLocalID uint64) error {
	exercises := tx.Bucket(bucketExercises)
	sets := tx.Bucket(bucketSets)
	if exercises == nil || sets == nil {
		return fmt.Errorf("workout buckets not found")
	}

	var exerciseKeys [][]byte
	exerciseIDs := make(map[uint64]bool)
	if err := exercises.ForEach(func(k, v []byte) error {
		var ex models.WorkoutExercise
		if err := json.Unmarshal(v, &ex); err != nil {
			return fmt.Errorf("failed to unmarshal exercise: %w", err)
		}
		if ex.WorkoutID == workoutLocalID {
			key := make([]byte, len(k))
			copy(key, k)
			exerciseKeys = append(exerciseKeys, key)
			exerciseIDs[ex.LocalID] = true
		}
		return nil
	}); err != nil {
		return err
	}

	var setKeys [][]byte
	if err := sets.ForEach(func(k, v []byte) error {
		var ws models.WorkoutSet
		if err := json.Unmarshal(v, &ws); err != nil {
			return fmt.Errorf("failed to unmarshal set: %w", err)
		}
		if exerciseIDs[ws.WorkoutExerciseID] {
			key := make([]byte, len(k))
			copy(key, k)
			setKeys = append(setKeys, key)
		}
		return nil
	}); err != nil {
		return err
	}

	for _, k := range setKeys {
		if err := sets.Delete(k); err != nil {
			return fmt.Errorf("failed to delete set: %w", err)
		}
	}
	for _, k := range exerciseKeys {
		if err := exercises.Delete(k); err != nil {
			return fmt.Errorf("failed to delete exercise: %w", err)
		}
	}
	return nil
}

// deleteSetsOfExercise удаляет все подходы одного упражнения
func deleteSetsOfExercise(tx *bbolt.Tx, exerciseLocalID uint64) error {
	sets := tx.Bucket(bucketSets)
	if sets == nil {
		return fmt.Errorf("sets bucket not found")
	}

	var setKeys [][]byte
	if err := sets.ForEach(func(k, v []byte) error {
		var ws models.WorkoutSet
		if err := json.Unmarshal(v, &ws); err != nil {
			return fmt.Errorf("failed to unmarshal set: %w", err)
		}
		if ws.WorkoutExerciseID == exerciseLocalID {
			key := make([]byte, len(k))
			copy(key, k)
			setKeys = append(setKeys, key)
		}
		return nil
	}); err != nil {
		return err
	}

	for _, k := range setKeys {
		if err := sets.Delete(k); err != nil {
			return fmt.Errorf("failed to delete set: %w", err)
		}
	}
	return nil
}

// putJSON сериализует значение и кладет его в bucket
func putJSON(bucket *bbolt.Bucket, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := bucket.Put(key, data); err != nil {
		return fmt.Errorf("failed to put value: %w", err)
	}
	return nil
}

// findByClientID ищет запись по client_id, не меняя bucket во время итерации.
// Возвращает ключ найденной записи и её текущий server_id; ключ nil — записи нет.
func findByClientID(
	bucket *bbolt.Bucket,
	clientID string,
	read func(v []byte) (cid string, sid string, err error),
) ([]byte, string, error) {
	var key []byte
	var serverID string

	c := bucket.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		cid, sid, err := read(v)
		if err != nil {
			return nil, "", err
		}
		if cid == clientID {
			key = make([]byte, len(k))
			copy(key, k)
			serverID = sid
			break
		}
	}
	return key, serverID, nil
}
