package models

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusViolation  TaskStatus = "violation"
	TaskStatusIncomplete TaskStatus = "incomplete"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is a unit of assigned safety work. WorkerID and WorkerUsername are
// fixed at assignment; WorkerReport and WorkerMedia are set together by a
// successful report commit, ViolationComment and ViolationTimestamp are
// set together by a violation report.
type Task struct {
	ID                 int64      `json:"id"`
	WorkerID           int64      `json:"worker_id"`
	WorkerUsername     string     `json:"worker_username"`
	Description        string     `json:"description"`
	Status             TaskStatus `json:"status"`
	ViolationComment   *string    `json:"violation_comment"`
	ViolationTimestamp *time.Time `json:"violation_timestamp"`
	WorkerReport       *string    `json:"worker_report"`
	WorkerMedia        *string    `json:"worker_media"`
}

// WorkerTask is the worker-facing projection of a task. It omits the
// numeric WorkerID column, which is manager-only.
type WorkerTask struct {
	ID                 int64      `json:"id"`
	WorkerUsername     string     `json:"worker_username"`
	Description        string     `json:"description"`
	Status             TaskStatus `json:"status"`
	ViolationComment   *string    `json:"violation_comment"`
	ViolationTimestamp *time.Time `json:"violation_timestamp"`
	WorkerReport       *string    `json:"worker_report"`
	WorkerMedia        *string    `json:"worker_media"`
}
