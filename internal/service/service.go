// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"context"
	"errors"
)

// Errors returned by Service implementations. Backends wrap them with %w so
// callers can classify failures with errors.Is.
var (
	// ErrNotFound indicates the task does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates the store (or the client) rejected the input.
	ErrValidation = errors.New("validation error")

	// ErrEmptyTitle is the validation error for a blank title.
	ErrEmptyTitle = errors.New("title required")

	// ErrAuth indicates a missing, expired or rejected credential.
	ErrAuth = errors.New("auth error")
)

// Service defines the interface for task store operations.
// All store calls go through this interface.
// Commands never import the transport directly.
type Service interface {
	// List returns one page of tasks matching the filter and search text,
	// together with the total number of matches.
	List(ctx context.Context, params ListParams) (ListResult, error)

	// Create creates a task. Fails with ErrValidation if the title is empty.
	Create(ctx context.Context, params CreateParams) (Task, error)

	// Update applies a partial update to a task.
	Update(ctx context.Context, id int64, params UpdateParams) (Task, error)

	// ToggleDone flips the completion flag of a task.
	ToggleDone(ctx context.Context, id int64) (Task, error)

	// Delete deletes a task.
	Delete(ctx context.Context, id int64) error
}

// Lister is the read side of Service.
type Lister interface {
	List(ctx context.Context, params ListParams) (ListResult, error)
}

// Creator is the subset of Service used by CSV import.
type Creator interface {
	Create(ctx context.Context, params CreateParams) (Task, error)
}

// Deleter is the subset of Service used by bulk delete.
type Deleter interface {
	Delete(ctx context.Context, id int64) error
}
