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

// Границы одного вызова flush. Верхняя граница итераций не дает циклу
// зависнуть, если очередь пополняется быстрее, чем дренится: остаток
// уедет при следующем flush.
const (
	maxFlushIterations = 5
	flushBatchSize     = 20
)

// Flush дренит outbox: до maxFlushIterations батчей по flushBatchSize,
// share-мутации отдельным подпотоком, затем pull. Офлайн или отсутствие
// сессии — тихий no-op.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked(ctx)
}

func (e *Engine) flushLocked(ctx context.Context) error {
	if !e.monitor.IsOnline() {
		return nil
	}

	sess, err := e.session.Session(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			e.logger.Debug("skipping flush: not authenticated")
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	for i := 0; i < maxFlushIterations; i++ {
		batch, err := e.queue.Pending(ctx, flushBatchSize)
		if err != nil {
			return fmt.Errorf("failed to read pending mutations: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		shares, pushable := splitShares(batch)

		// Отказ share останавливает подпоток только до конца итерации:
		// упавшая запись остается первой в FIFO и следующая итерация
		// начнет с нее же
		removed := 0
		if len(shares) > 0 {
			removed += e.drainShares(ctx, sess.AccessToken, shares)
		}

		if len(pushable) > 0 {
			resp, err := e.pushBatch(ctx, sess.AccessToken, pushable)
			if err != nil {
				e.logger.Warn("push failed, marking batch", "count", len(pushable), "error", err)
				for _, m := range pushable {
					if mErr := e.queue.MarkFailed(ctx, m.QueueID, err.Error()); mErr != nil {
						e.logger.Error("failed to mark mutation", "queue_id", m.QueueID, "error", mErr)
					}
				}
				break
			}

			e.applyAcks(ctx, pushable, resp.Results)

			for _, m := range pushable {
				if rmErr := e.queue.Remove(ctx, m.QueueID); rmErr != nil {
					e.logger.Error("failed to remove acked mutation", "queue_id", m.QueueID, "error", rmErr)
				}
			}
			removed += len(pushable)

			e.advanceCursor(ctx, resp.ServerTime)
		}

		// Итерация не продвинула очередь, дальше будет то же самое
		if removed == 0 {
			break
		}
	}

	if count, err := e.queue.CountPending(ctx); err == nil && count > 0 {
		e.logger.Info("mutations still pending after flush", "count", count)
	}

	// Завершающий pull выполняется всегда, в том числе после неудачного
	// push: серверные события не должны ждать починки исходящего потока
	if err := e.pullLocked(ctx, -1); err != nil {
		e.logger.Warn("pull after flush failed", "error", err)
	}
	return nil
}

// splitShares отделяет share-workout от остальных мутаций батча,
// сохраняя исходный порядок внутри каждой группы
func splitShares(batch []*models.MutationRecord) (shares, pushable []*models.MutationRecord) {
	for _, m := range batch {
		if m.Action == api.ActionShareWorkout {
			shares = append(shares, m)
		} else {
			pushable = append(pushable, m)
		}
	}
	return shares, pushable
}

// drainShares отправляет отложенные share-мутации по одной и возвращает
// число удаленных записей. Первый же отказ останавливает подпоток:
// неудавшаяся запись помечается failed и остается в очереди, последующие
// не трогаются до следующей итерации.
func (e *Engine) drainShares(ctx context.Context, accessToken string, shares []*models.MutationRecord) (removed int) {
	for _, m := range shares {
		var payload api.SharePayload
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			e.logger.Error("malformed share payload, dropping", "queue_id", m.QueueID, "error", err)
			if rmErr := e.queue.Remove(ctx, m.QueueID); rmErr != nil {
				e.logger.Error("failed to remove mutation", "queue_id", m.QueueID, "error", rmErr)
			}
			removed++
			continue
		}

		_, err := e.apiClient.Share(ctx, accessToken, payload.WorkoutID, api.ShareRequest{UserID: payload.UserID})
		if err != nil {
			e.logger.Warn("deferred share failed", "queue_id", m.QueueID, "error", err)
			if mErr := e.queue.MarkFailed(ctx, m.QueueID, err.Error()); mErr != nil {
				e.logger.Error("failed to mark mutation", "queue_id", m.QueueID, "error", mErr)
			}
			return removed
		}

		if rmErr := e.queue.Remove(ctx, m.QueueID); rmErr != nil {
			e.logger.Error("failed to remove mutation", "queue_id", m.QueueID, "error", rmErr)
		}
		removed++
	}
	return removed
}

func (e *Engine) pushBatch(ctx context.Context, accessToken string, batch []*models.MutationRecord) (*api.PushResponse, error) {
	req := api.PushRequest{Mutations: make([]api.PushMutation, 0, len(batch))}
	for _, m := range batch {
		req.Mutations = append(req.Mutations, api.PushMutation{
			QueueID:   m.QueueID,
			Action:    m.Action,
			Payload:   m.Payload,
			CreatedAt: m.CreatedAt,
		})
	}
	return e.apiClient.Push(ctx, accessToken, req)
}

// applyAcks записывает присвоенные сервером идентификаторы в локальные
// записи. Сопоставление идет по client_id из payload мутации; мутации
// без client_id и не-create действия пропускаются.
func (e *Engine) applyAcks(ctx context.Context, batch []*models.MutationRecord, results []api.MutationResult) {
	byQueueID := make(map[uint64]*models.MutationRecord, len(batch))
	for _, m := range batch {
		byQueueID[m.QueueID] = m
	}

	for _, res := range results {
		if res.ServerID == "" {
			continue
		}
		m, ok := byQueueID[res.QueueID]
		if !ok {
			continue
		}
		clientID := m.ClientID()
		if clientID == "" {
			continue
		}

		var err error
		switch m.Action {
		case api.ActionCreateWorkout:
			err = e.workouts.AssignWorkoutServerID(ctx, clientID, res.ServerID)
		case api.ActionAddExercise:
			err = e.workouts.AssignExerciseServerID(ctx, clientID, res.ServerID)
		case api.ActionAddSet:
			err = e.workouts.AssignSetServerID(ctx, clientID, res.ServerID)
		default:
			continue
		}
		if err != nil {
			e.logger.Warn("failed to record server id",
				"action", m.Action,
				"client_id", clientID,
				"error", err)
		}
	}
}

// advanceCursor двигает курсор последнего pull вперед по server_time.
// Непарсибельное время или время не новее текущего курсора игнорируется:
// курсор монотонен.
func (e *Engine) advanceCursor(ctx context.Context, serverTime string) {
	if serverTime == "" {
		return
	}
	t, err := time.Parse(time.RFC3339, serverTime)
	if err != nil {
		e.logger.Warn("unparseable server time, keeping cursor", "server_time", serverTime)
		return
	}
	ms := t.UnixMilli()

	current, err := e.syncState.GetLastPullTimestamp(ctx)
	if err != nil {
		e.logger.Warn("failed to read sync cursor", "error", err)
		return
	}
	if ms <= current {
		return
	}
	if err := e.syncState.SaveLastPullTimestamp(ctx, ms); err != nil {
		e.logger.Warn("failed to save sync cursor", "error", err)
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
