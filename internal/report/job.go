package report

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job is the handle returned by Submit. It settles exactly once.
type Job struct {
	ID       string
	TaskID   int64
	WorkerID int64

	mu     sync.Mutex
	status JobStatus
	err    error
	done   chan struct{}
}

func newJob(taskID, workerID int64) *Job {
	return &Job{
		ID:       uuid.New().String(),
		TaskID:   taskID,
		WorkerID: workerID,
		status:   JobRunning,
		done:     make(chan struct{}),
	}
}

func (j *Job) finish(err error) {
	j.mu.Lock()
	if err != nil {
		j.status = JobFailed
		j.err = err
	} else {
		j.status = JobSucceeded
	}
	j.mu.Unlock()
	close(j.done)
}

// Status returns the job's current state.
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Err returns the failure cause, or nil while running or after success.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done is closed when the job settles.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job settles or the context is canceled, and
// returns the job's error.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
