package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ldi/sitesafe/pkg/models"
)

var (
	// ErrInvalidSelection is returned by Submit when the task is not among
	// the worker's open tasks. No work is dispatched in that case.
	ErrInvalidSelection = errors.New("task is not an open task of this worker")

	// ErrTransfer marks a failed media transfer. The task moves to the
	// failed status and keeps the draft report text.
	ErrTransfer = errors.New("media transfer failed")
)

// Lifecycle is the task state machine the executor commits through.
type Lifecycle interface {
	ListForWorker(ctx context.Context, workerID int64) ([]*models.WorkerTask, error)
	SaveDraft(ctx context.Context, taskID, workerID int64, report string) error
	Complete(ctx context.Context, taskID, workerID int64, report, mediaPath string) error
	MarkFailed(ctx context.Context, taskID int64) error
}

// commitTimeout bounds the database commit after a transfer. The store
// write lock is taken inside the commit only, never around the transfer.
const commitTimeout = 5 * time.Second

// Config holds executor settings. Zero values fall back to defaults.
type Config struct {
	UploadsDir    string
	Timeout       time.Duration // bound on a single media transfer
	MaxConcurrent int           // concurrent transfer limit
	Logger        *zap.Logger
}

// Executor applies worker report submissions to the store. Submit returns
// a Job handle immediately; the transfer and the commit run in a
// background goroutine so the caller never waits out the transfer.
type Executor struct {
	tasks   Lifecycle
	uploads string
	timeout time.Duration
	sem     chan struct{}
	log     *zap.Logger

	jobsMu sync.RWMutex
	jobs   map[string]*Job
	wg     sync.WaitGroup
}

func NewExecutor(tasks Lifecycle, cfg Config) *Executor {
	if cfg.UploadsDir == "" {
		cfg.UploadsDir = "uploads"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Executor{
		tasks:   tasks,
		uploads: cfg.UploadsDir,
		timeout: cfg.Timeout,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		log:     cfg.Logger,
		jobs:    make(map[string]*Job),
	}
}

// Submit validates that taskID is an open task of workerID, persists the
// report text as a draft, and dispatches the media transfer in the
// background. The returned Job reports completion or failure; callers
// poll it or Wait on it, they are not blocked for the transfer duration.
func (e *Executor) Submit(ctx context.Context, taskID, workerID int64, reportText, mediaPath string) (*Job, error) {
	open, err := e.tasks.ListForWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	selectable := false
	for _, t := range open {
		if t.ID == taskID && t.Status != models.TaskStatusCompleted {
			selectable = true
			break
		}
	}
	if !selectable {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrInvalidSelection)
	}

	// The draft lands before any transfer work so a failed transfer can
	// never lose the worker's text.
	if err := e.tasks.SaveDraft(ctx, taskID, workerID, reportText); err != nil {
		return nil, err
	}

	job := newJob(taskID, workerID)
	e.jobsMu.Lock()
	e.jobs[job.ID] = job
	e.jobsMu.Unlock()

	e.wg.Add(1)
	go e.run(job, reportText, mediaPath)

	e.log.Info("report submitted",
		zap.String("job_id", job.ID),
		zap.Int64("task_id", taskID),
		zap.Int64("worker_id", workerID))

	return job, nil
}

// Job returns a previously submitted job by id.
func (e *Executor) Job(id string) (*Job, bool) {
	e.jobsMu.RLock()
	defer e.jobsMu.RUnlock()
	j, ok := e.jobs[id]
	return j, ok
}

// Wait blocks until all dispatched jobs have finished.
func (e *Executor) Wait() {
	e.wg.Wait()
}

func (e *Executor) run(job *Job, reportText, mediaPath string) {
	defer e.wg.Done()

	e.sem <- struct{}{}
	defer func() { <-e.sem }()

	start := time.Now()
	dst := filepath.Join(e.uploads, fmt.Sprintf("task_%d_user_%d", job.TaskID, job.WorkerID))

	// The submit context belongs to the caller and may be gone by now;
	// the transfer gets its own bounded context.
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	err := copyFile(ctx, mediaPath, dst)
	cancel()

	if err != nil {
		e.fail(job, fmt.Errorf("%w: %v", ErrTransfer, err))
		return
	}

	commitCtx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	err = e.tasks.Complete(commitCtx, job.TaskID, job.WorkerID, reportText, dst)
	cancel()

	if err != nil {
		e.fail(job, err)
		return
	}

	job.finish(nil)
	e.log.Info("report committed",
		zap.String("job_id", job.ID),
		zap.Int64("task_id", job.TaskID),
		zap.String("media", dst),
		zap.Duration("elapsed", time.Since(start)))
}

func (e *Executor) fail(job *Job, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	if err := e.tasks.MarkFailed(ctx, job.TaskID); err != nil {
		e.log.Error("failed to mark task failed",
			zap.Int64("task_id", job.TaskID),
			zap.Error(err))
	}
	cancel()

	job.finish(cause)
	e.log.Error("report submission failed",
		zap.String("job_id", job.ID),
		zap.Int64("task_id", job.TaskID),
		zap.Error(cause))
}

// copyFile streams src to dst, checking the context between chunks.
func copyFile(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, &ctxReader{ctx: ctx, r: in})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
