package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ldi/sitesafe/pkg/models"
)

// CreateTask inserts a new task row. The generated id is written back to t.
func (db *DB) CreateTask(ctx context.Context, t *models.Task) error {
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}

	query := `
		INSERT INTO tasks (worker_id, worker_username, task_description, status)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	db.writeMu.Lock()
	err := db.QueryRowContext(ctx, query,
		t.WorkerID, t.WorkerUsername, t.Description, t.Status,
	).Scan(&t.ID)
	db.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

// GetTask retrieves a task by its ID. Returns (nil, nil) if no row exists.
func (db *DB) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	query := `
		SELECT id, worker_id, worker_username, task_description, status,
		       violation_comment, violation_timestamp, worker_report, worker_media
		FROM tasks
		WHERE id = ?
	`
	t := &models.Task{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.WorkerID, &t.WorkerUsername, &t.Description, &t.Status,
		&t.ViolationComment, &t.ViolationTimestamp, &t.WorkerReport, &t.WorkerMedia,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return t, nil
}

// ListTasks returns every task row, including the manager-only worker_id.
func (db *DB) ListTasks(ctx context.Context) ([]*models.Task, error) {
	query := `
		SELECT id, worker_id, worker_username, task_description, status,
		       violation_comment, violation_timestamp, worker_report, worker_media
		FROM tasks
		ORDER BY id ASC
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t := &models.Task{}
		err := rows.Scan(
			&t.ID, &t.WorkerID, &t.WorkerUsername, &t.Description, &t.Status,
			&t.ViolationComment, &t.ViolationTimestamp, &t.WorkerReport, &t.WorkerMedia,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tasks, nil
}

// ListWorkerTasks returns the tasks assigned to a worker, projected
// without the numeric worker_id column.
func (db *DB) ListWorkerTasks(ctx context.Context, workerID int64) ([]*models.WorkerTask, error) {
	query := `
		SELECT id, worker_username, task_description, status,
		       violation_comment, violation_timestamp, worker_report, worker_media
		FROM tasks
		WHERE worker_id = ?
		ORDER BY id ASC
	`
	rows, err := db.QueryContext(ctx, query, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list worker tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.WorkerTask
	for rows.Next() {
		t := &models.WorkerTask{}
		err := rows.Scan(
			&t.ID, &t.WorkerUsername, &t.Description, &t.Status,
			&t.ViolationComment, &t.ViolationTimestamp, &t.WorkerReport, &t.WorkerMedia,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tasks, nil
}

// SetViolation overwrites a task's status, violation comment and violation
// timestamp. Returns false if the task does not exist.
func (db *DB) SetViolation(ctx context.Context, id int64, status models.TaskStatus, comment string, ts time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET status = ?, violation_comment = ?, violation_timestamp = ?
		WHERE id = ?
	`
	db.writeMu.Lock()
	res, err := db.ExecContext(ctx, query, status, comment, ts, id)
	db.writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("failed to set violation: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	db.triggerChange(ctx)
	return true, nil
}

// SaveDraftReport persists the worker's report text before the media
// transfer is attempted, so a failed transfer does not lose the input.
// Returns false when the task is not assigned to the worker.
func (db *DB) SaveDraftReport(ctx context.Context, id, workerID int64, report string) (bool, error) {
	query := `
		UPDATE tasks
		SET worker_report = ?
		WHERE id = ? AND worker_id = ?
	`
	db.writeMu.Lock()
	res, err := db.ExecContext(ctx, query, report, id, workerID)
	db.writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("failed to save draft report: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows > 0 {
		db.triggerChange(ctx)
	}
	return rows > 0, nil
}

// CompleteTask commits a worker's report: report text, saved media path
// and status completed in a single statement. Returns false when the task
// is not assigned to the worker.
func (db *DB) CompleteTask(ctx context.Context, id, workerID int64, report, mediaPath string) (bool, error) {
	query := `
		UPDATE tasks
		SET worker_report = ?, worker_media = ?, status = ?
		WHERE id = ? AND worker_id = ?
	`
	db.writeMu.Lock()
	res, err := db.ExecContext(ctx, query, report, mediaPath, models.TaskStatusCompleted, id, workerID)
	db.writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	db.triggerChange(ctx)
	return true, nil
}

// SetTaskStatus updates only the status column. Returns false if the task
// does not exist.
func (db *DB) SetTaskStatus(ctx context.Context, id int64, status models.TaskStatus) (bool, error) {
	query := `UPDATE tasks SET status = ? WHERE id = ?`

	db.writeMu.Lock()
	res, err := db.ExecContext(ctx, query, status, id)
	db.writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("failed to set task status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	db.triggerChange(ctx)
	return true, nil
}

// DeleteTask deletes a task by its ID. Returns false if no row was deleted.
func (db *DB) DeleteTask(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM tasks WHERE id = ?`

	db.writeMu.Lock()
	res, err := db.ExecContext(ctx, query, id)
	db.writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	db.triggerChange(ctx)
	return true, nil
}
