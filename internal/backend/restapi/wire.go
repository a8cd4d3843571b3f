package restapi

import (
	"time"

	"todoctl/internal/service"
)

// wireTask is a task as sent by the store. Dates are kept as strings because
// the store may omit the UTC offset.
type wireTask struct {
	ID          int64   `json:"id"`
	UserID      *int64  `json:"user_id"`
	CatID       *int64  `json:"cat_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      int     `json:"status"`
	FinishDate  *string `json:"finish_date"`
	IsDone      bool    `json:"is_done"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type wireList struct {
	Items  []wireTask `json:"items"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

func (w wireTask) task() service.Task {
	t := service.Task{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Status:      w.Status,
		IsDone:      w.IsDone,
		CreatedAt:   parseTime(w.CreatedAt),
		UpdatedAt:   parseTime(w.UpdatedAt),
	}
	if t.Description != nil && *t.Description == "" {
		t.Description = nil
	}
	if w.UserID != nil {
		t.UserID = *w.UserID
	}
	if w.CatID != nil {
		t.CatID = *w.CatID
	}
	if w.FinishDate != nil {
		if fd := parseTime(*w.FinishDate); !fd.IsZero() {
			t.FinishDate = &fd
		}
	}
	return t
}

// parseTime returns the zero time for empty or unparsable values.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := service.ParseTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
