package tracker

import (
	"context"
	"fmt"
	"time"
	"unicode"

	"github.com/ldi/sitesafe/pkg/models"
)

// Store is the subset of database operations the tracker needs.
type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	ListTasks(ctx context.Context) ([]*models.Task, error)
	ListWorkerTasks(ctx context.Context, workerID int64) ([]*models.WorkerTask, error)
	SetViolation(ctx context.Context, id int64, status models.TaskStatus, comment string, ts time.Time) (bool, error)
	SaveDraftReport(ctx context.Context, id, workerID int64, report string) (bool, error)
	CompleteTask(ctx context.Context, id, workerID int64, report, mediaPath string) (bool, error)
	SetTaskStatus(ctx context.Context, id int64, status models.TaskStatus) (bool, error)
	DeleteTask(ctx context.Context, id int64) (bool, error)
}

// Tracker drives the task lifecycle: assignment, violation annotation and
// completion. It owns no rows itself; all state lives in the store.
type Tracker struct {
	store Store
}

func New(store Store) *Tracker {
	return &Tracker{store: store}
}

// Assign creates a new pending task for a worker. The worker id must
// resolve to an existing user with the worker role.
func (tr *Tracker) Assign(ctx context.Context, workerID int64, description string) (*models.Task, error) {
	if description == "" {
		return nil, fmt.Errorf("task description must not be empty: %w", ErrValidation)
	}

	u, err := tr.store.GetUser(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Role != models.RoleWorker {
		return nil, fmt.Errorf("worker %d: %w", workerID, ErrNotFound)
	}

	t := &models.Task{
		WorkerID:       u.ID,
		WorkerUsername: u.Username,
		Description:    description,
		Status:         models.TaskStatusPending,
	}
	if err := tr.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ReportViolation overwrites a task's status and records the violation
// comment with the current timestamp. The new status must be a non-empty,
// non-numeric string; beyond that any value is accepted, including custom
// manager-entered text. There is no transition guard: a completed task
// can be re-annotated.
func (tr *Tracker) ReportViolation(ctx context.Context, taskID int64, newStatus, comment string) error {
	if newStatus == "" || isNumeric(newStatus) {
		return fmt.Errorf("status must be a non-empty, non-numeric string: %w", ErrValidation)
	}

	ok, err := tr.store.SetViolation(ctx, taskID, models.TaskStatus(newStatus), comment, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return nil
}

// SaveDraft persists a worker's report text on their task without touching
// the status. Used by the reporting executor before the media transfer so
// a failed transfer cannot lose the input.
func (tr *Tracker) SaveDraft(ctx context.Context, taskID, workerID int64, report string) error {
	ok, err := tr.store.SaveDraftReport(ctx, taskID, workerID, report)
	if err != nil {
		return err
	}
	if !ok {
		return tr.ownershipErr(ctx, taskID)
	}
	return nil
}

// Complete commits a worker's report: report text, saved media path and
// status completed. The task must currently be assigned to workerID.
func (tr *Tracker) Complete(ctx context.Context, taskID, workerID int64, report, mediaPath string) error {
	ok, err := tr.store.CompleteTask(ctx, taskID, workerID, report, mediaPath)
	if err != nil {
		return err
	}
	if !ok {
		return tr.ownershipErr(ctx, taskID)
	}
	return nil
}

// MarkFailed moves a task to the terminal failed status, distinct from
// pending and completed, so a failed report submission is observable and
// the worker can retry.
func (tr *Tracker) MarkFailed(ctx context.Context, taskID int64) error {
	ok, err := tr.store.SetTaskStatus(ctx, taskID, models.TaskStatusFailed)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return nil
}

// ListForWorker returns a snapshot of the tasks assigned to a worker,
// without the manager-only worker id column.
func (tr *Tracker) ListForWorker(ctx context.Context, workerID int64) ([]*models.WorkerTask, error) {
	return tr.store.ListWorkerTasks(ctx, workerID)
}

// ListAll returns a snapshot of every task.
func (tr *Tracker) ListAll(ctx context.Context) ([]*models.Task, error) {
	return tr.store.ListTasks(ctx)
}

// Delete removes a task. Deleting an unknown id fails with ErrNotFound.
func (tr *Tracker) Delete(ctx context.Context, taskID int64) error {
	ok, err := tr.store.DeleteTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return nil
}

// ownershipErr distinguishes a missing task from one assigned to a
// different worker.
func (tr *Tracker) ownershipErr(ctx context.Context, taskID int64) error {
	t, err := tr.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("task %d: %w", taskID, ErrNotFound)
	}
	return fmt.Errorf("task %d: %w", taskID, ErrNotOwner)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
