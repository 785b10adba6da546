package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/conference-central/internal/persistence"
)

// TaskQueue implements persistence.TaskRepository on the tasks table.
// Timestamps are stored as Unix milliseconds so they compare numerically.
type TaskQueue struct {
	pool   *ConnectionPool
	retry  *RetryHelper
	mapper *ErrorMapper
}

// EnqueueTask persists a new task.
func (tq *TaskQueue) EnqueueTask(ctx context.Context, task persistence.Task) error {
	if task.ID == "" || task.Name == "" {
		return persistence.ErrConstraintViolation
	}
	if task.Payload == nil {
		task.Payload = []byte{}
	}

	return tq.retry.WithRetry(ctx, func() error {
		_, err := tq.pool.DB().ExecContext(ctx, `
			INSERT INTO tasks (id, name, payload, attempts, available_at, last_error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			task.ID,
			task.Name,
			task.Payload,
			task.Attempts,
			task.AvailableAt.UnixMilli(),
			task.LastError,
			task.CreatedAt.UnixMilli(),
		)
		return tq.mapper.MapError(err)
	})
}

// ClaimDueTasks leases due tasks to the caller inside one transaction.
func (tq *TaskQueue) ClaimDueTasks(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]persistence.Task, error) {
	if limit <= 0 {
		return nil, nil
	}

	var claimed []persistence.Task
	err := tq.retry.WithRetry(ctx, func() error {
		claimed = nil
		return tq.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			rows, err := tx.QueryContext(ctx, `
				SELECT id, name, payload, attempts, available_at, last_error, created_at
				FROM tasks
				WHERE available_at <= ?
				ORDER BY available_at ASC, created_at ASC
				LIMIT ?
			`, now.UnixMilli(), limit)
			if err != nil {
				return tq.mapper.MapError(err)
			}

			var due []persistence.Task
			for rows.Next() {
				var (
					task        persistence.Task
					availableAt int64
					createdAt   int64
				)
				if err := rows.Scan(&task.ID, &task.Name, &task.Payload, &task.Attempts, &availableAt, &task.LastError, &createdAt); err != nil {
					rows.Close()
					return tq.mapper.MapError(err)
				}
				task.AvailableAt = time.UnixMilli(availableAt).UTC()
				task.CreatedAt = time.UnixMilli(createdAt).UTC()
				due = append(due, task)
			}
			if err := rows.Close(); err != nil {
				return tq.mapper.MapError(err)
			}
			if err := rows.Err(); err != nil {
				return tq.mapper.MapError(err)
			}

			leasedUntil := now.Add(lease)
			for i := range due {
				if _, err := tx.ExecContext(ctx,
					`UPDATE tasks SET attempts = attempts + 1, available_at = ? WHERE id = ?`,
					leasedUntil.UnixMilli(), due[i].ID,
				); err != nil {
					return tq.mapper.MapError(err)
				}
				due[i].Attempts++
			}

			claimed = due
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// RescheduleTask makes a task available again at availableAt.
func (tq *TaskQueue) RescheduleTask(ctx context.Context, id string, availableAt time.Time, lastError string) error {
	return tq.retry.WithRetry(ctx, func() error {
		result, err := tq.pool.DB().ExecContext(ctx,
			`UPDATE tasks SET available_at = ?, last_error = ? WHERE id = ?`,
			availableAt.UnixMilli(), lastError, id,
		)
		if err != nil {
			return tq.mapper.MapError(err)
		}
		return requireAffected(result, id)
	})
}

// DeleteTask removes a finished or abandoned task.
func (tq *TaskQueue) DeleteTask(ctx context.Context, id string) error {
	return tq.retry.WithRetry(ctx, func() error {
		result, err := tq.pool.DB().ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return tq.mapper.MapError(err)
		}
		return requireAffected(result, id)
	})
}

func requireAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, persistence.ErrNotFound)
	}
	return nil
}
