// Package tasks provides the task list the voice agent operates on: the Task
// record, the Store capability interface, and in-memory and PostgreSQL
// implementations.
//
// All store operations are safe for concurrent use.
package tasks

// Status is the lifecycle state of a task.
type Status string

const (
	// StatusOpen marks a task as not yet done.
	StatusOpen Status = "open"

	// StatusClosed marks a task as done.
	StatusClosed Status = "closed"
)

// IsValid reports whether s is a recognised status.
func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusClosed
}

// Task is one item on the task list.
type Task struct {
	// ID is a unique identifier. Auto-generated on create if empty.
	ID string `json:"id"`

	// Title is the short display name of the task.
	Title string `json:"title"`

	// Description is free-text detail.
	Description string `json:"description"`

	// Status is the lifecycle state, open or closed.
	Status Status `json:"status"`
}
