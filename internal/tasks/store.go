package tasks

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested task does not exist.
var ErrNotFound = errors.New("task not found")

// ErrDuplicateID is returned by Create when a task with the same ID already exists.
var ErrDuplicateID = errors.New("task with that ID already exists")

// Store is the capability interface the tool dispatcher operates against. It
// is injected explicitly — a dispatcher cannot be built without one, so there
// is no "handler not wired" state.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Create adds a new task. Returns the task with a generated ID if the
	// provided task's ID is empty, and with status defaulted to open when
	// unset. Returns [ErrDuplicateID] if a task with the same non-empty ID
	// exists.
	Create(ctx context.Context, task Task) (Task, error)

	// Get retrieves a task by ID.
	// Returns [ErrNotFound] when no task with that ID exists.
	Get(ctx context.Context, id string) (Task, error)

	// List returns all tasks. Result order is not guaranteed.
	List(ctx context.Context) ([]Task, error)

	// Update replaces an existing task. The task's ID must be non-empty.
	// Returns [ErrNotFound] when no task with that ID exists.
	Update(ctx context.Context, task Task) error

	// Delete removes a task by ID.
	// Returns [ErrNotFound] when no task with that ID exists.
	Delete(ctx context.Context, id string) error

	// SetStatus changes a task's lifecycle state.
	// Returns [ErrNotFound] when no task with that ID exists.
	SetStatus(ctx context.Context, id string, status Status) error
}
