// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"fmt"
	"strings"
	"time"
)

// Task status values as stored by the remote store.
const (
	StatusTodo = 0
	StatusDone = 1
)

// Task is the client-side projection of a task record owned by the store.
type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	CatID       int64      `json:"cat_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      int        `json:"status"`
	FinishDate  *time.Time `json:"finish_date"`
	IsDone      bool       `json:"is_done"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Done reports whether the task is completed.
func (t Task) Done() bool {
	return t.IsDone || t.Status == StatusDone
}

// DescriptionText returns the description or "" when absent.
func (t Task) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// Filter is the completion-status predicate applied to a list query.
type Filter string

const (
	FilterAll  Filter = "all"
	FilterDone Filter = "done"
	FilterTodo Filter = "todo"
)

// Filters lists the filters in display order.
var Filters = []Filter{FilterAll, FilterTodo, FilterDone}

// ParseFilter parses a filter name (case-insensitive, trimmed).
// Accepts "completed" for done and "incomplete"/"open" for todo.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "done", "completed":
		return FilterDone, nil
	case "todo", "incomplete", "open":
		return FilterTodo, nil
	default:
		return "", fmt.Errorf("%w: unknown filter: %s", ErrValidation, s)
	}
}

// ListParams are the parameters of a list request.
// Search is omitted from the request when empty.
type ListParams struct {
	Filter Filter
	Search string
	Limit  int
	Offset int
}

// ListResult is one page of tasks plus the total matching count.
type ListResult struct {
	Items  []Task `json:"items"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// CreateParams holds the fields of a create request.
// Nil pointers are left to the store's defaults.
type CreateParams struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	UserID      *int64     `json:"user_id,omitempty"`
	CatID       *int64     `json:"cat_id,omitempty"`
	Status      *int       `json:"status,omitempty"`
	FinishDate  *time.Time `json:"finish_date,omitempty"`
}

// UpdateParams holds a partial update; only non-nil fields change.
// A non-nil empty Description clears the description.
type UpdateParams struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsDone      *bool   `json:"is_done,omitempty"`
}
