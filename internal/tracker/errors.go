package tracker

import "errors"

var (
	// ErrNotFound is returned when a referenced task or worker does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for empty or malformed input. Callers
	// recover locally (re-prompt); it is never fatal.
	ErrValidation = errors.New("invalid input")

	// ErrNotOwner is returned when a worker tries to complete a task that
	// is not assigned to them.
	ErrNotOwner = errors.New("task not assigned to worker")
)
