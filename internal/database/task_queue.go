package database

import (
	"context"
	"fmt"
	"time"

	"travelbooking/internal/models"
)

const taskColumns = `id, task_type, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

func (db *DB) CreateTask(ctx context.Context, task *models.Task) error {
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	query := `INSERT INTO task_queue (task_type, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		task.TaskType,
		task.BookingID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

// GetPendingTasks returns due pending and retry tasks, oldest first.
func (db *DB) GetPendingTasks(ctx context.Context, limit int) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task_queue
              WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	return db.queryTasks(ctx, query, models.TaskStatusPending, models.TaskStatusRetry, time.Now().UTC(), limit)
}

// ClaimTask moves a due task to running. It reports false when another consumer
// already took it or it is finished.
func (db *DB) ClaimTask(ctx context.Context, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE task_queue SET status = ? WHERE id = ? AND status IN (?, ?)`,
		models.TaskStatusRunning, id, models.TaskStatusPending, models.TaskStatusRetry)
	if err != nil {
		return false, fmt.Errorf("failed to claim task %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// RequeueInterrupted returns tasks left running by a previous process to pending.
func (db *DB) RequeueInterrupted(ctx context.Context) (int64, error) {
	result, err := db.ExecContext(ctx, `UPDATE task_queue SET status = ? WHERE status = ?`,
		models.TaskStatusPending, models.TaskStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue tasks: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) GetFailedTasks(ctx context.Context) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM task_queue WHERE status = ? ORDER BY created_at DESC`
	return db.queryTasks(ctx, query, models.TaskStatusFailed)
}

func (db *DB) queryTasks(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		err := rows.Scan(
			&t.ID, &t.TaskType, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount,
			&t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (db *DB) UpdateTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := time.Now().UTC()

	var lastErr *string
	if errMsg != "" {
		lastErr = &errMsg
	}
	if nextRetryAt != nil {
		utc := nextRetryAt.UTC()
		nextRetryAt = &utc
	}

	switch status {
	case models.TaskStatusRetry:
		query = `UPDATE task_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, lastErr, nextRetryAt, id}
	case models.TaskStatusCompleted, models.TaskStatusFailed:
		query = `UPDATE task_queue SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, lastErr, nextRetryAt, now, id}
	default:
		query = `UPDATE task_queue SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, lastErr, nextRetryAt, id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return nil
}
