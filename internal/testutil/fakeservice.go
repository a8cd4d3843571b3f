// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"todoctl/internal/service"
)

// epoch is the creation time of the first fake task.
var epoch = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

// FakeService is an in-memory implementation of service.Service for testing.
// Tasks are listed newest first, like the real store.
type FakeService struct {
	mu     sync.Mutex
	tasks  []service.Task
	nextID int64

	// Recorded calls
	ListCalls   []service.ListParams
	CreateCalls []service.CreateParams
	DeleteCalls []int64

	// Error injection for testing
	ListErr   error
	CreateErr error
	// CreateErrAfter fails every create after this many succeeded (0 = off).
	CreateErrAfter int
	UpdateErr      error
	ToggleErr      error
	DeleteErr      error
	DeleteErrs     map[int64]error // id -> error

	// DeleteDelay slows each delete so concurrency can be observed.
	DeleteDelay     time.Duration
	deletesInFlight int
	MaxDeletes      int // highest number of deletes seen in flight
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		nextID:     1,
		DeleteErrs: make(map[int64]error),
	}
}

// AddTask adds an open task and returns its ID.
func (f *FakeService) AddTask(title string) int64 {
	return f.add(title, false)
}

// AddDoneTask adds a completed task and returns its ID.
func (f *FakeService) AddDoneTask(title string) int64 {
	return f.add(title, true)
}

// AddTasks adds n open tasks titled "task 1".."task n" and returns their IDs.
func (f *FakeService) AddTasks(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = f.AddTask(fmt.Sprintf("task %d", i+1))
	}
	return ids
}

func (f *FakeService) add(title string, done bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.newTaskLocked(service.CreateParams{Title: title})
	if done {
		t.Status = service.StatusDone
		t.IsDone = true
	}
	f.tasks = append(f.tasks, t)
	return t.ID
}

func (f *FakeService) newTaskLocked(p service.CreateParams) service.Task {
	id := f.nextID
	f.nextID++
	created := epoch.Add(time.Duration(id) * time.Minute)
	t := service.Task{
		ID:          id,
		UserID:      1,
		CatID:       1,
		Title:       p.Title,
		Description: p.Description,
		FinishDate:  p.FinishDate,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	if p.UserID != nil {
		t.UserID = *p.UserID
	}
	if p.CatID != nil {
		t.CatID = *p.CatID
	}
	if p.Status != nil && *p.Status == service.StatusDone {
		t.Status = service.StatusDone
		t.IsDone = true
	}
	return t
}

// Tasks returns a copy of all tasks, newest first.
func (f *FakeService) Tasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedLocked()
}

// Task returns the task with the given ID.
func (f *FakeService) Task(id int64) (service.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.indexLocked(id)
	if i < 0 {
		return service.Task{}, false
	}
	return f.tasks[i], true
}

// RemoveTask deletes a task behind the client's back.
func (f *FakeService) RemoveTask(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexLocked(id); i >= 0 {
		f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	}
}

func (f *FakeService) sortedLocked() []service.Task {
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f *FakeService) indexLocked(id int64) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// List implements service.Service.
func (f *FakeService) List(ctx context.Context, p service.ListParams) (service.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls = append(f.ListCalls, p)
	if f.ListErr != nil {
		return service.ListResult{}, f.ListErr
	}

	search := strings.ToLower(strings.TrimSpace(p.Search))
	var matched []service.Task
	for _, t := range f.sortedLocked() {
		switch p.Filter {
		case service.FilterDone:
			if !t.Done() {
				continue
			}
		case service.FilterTodo:
			if t.Done() {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) {
			continue
		}
		matched = append(matched, t)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	start := min(max(p.Offset, 0), len(matched))
	end := min(start+limit, len(matched))
	items := make([]service.Task, end-start)
	copy(items, matched[start:end])

	return service.ListResult{
		Items:  items,
		Total:  len(matched),
		Limit:  limit,
		Offset: p.Offset,
	}, nil
}

// Create implements service.Service.
func (f *FakeService) Create(ctx context.Context, p service.CreateParams) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return service.Task{}, f.CreateErr
	}
	if f.CreateErrAfter > 0 && len(f.CreateCalls) >= f.CreateErrAfter {
		return service.Task{}, fmt.Errorf("store unavailable")
	}
	if strings.TrimSpace(p.Title) == "" {
		return service.Task{}, fmt.Errorf("%w: title must not be empty", service.ErrValidation)
	}
	f.CreateCalls = append(f.CreateCalls, p)

	t := f.newTaskLocked(p)
	f.tasks = append(f.tasks, t)
	return t, nil
}

// Update implements service.Service.
func (f *FakeService) Update(ctx context.Context, id int64, p service.UpdateParams) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return service.Task{}, f.UpdateErr
	}
	i := f.indexLocked(id)
	if i < 0 {
		return service.Task{}, service.ErrNotFound
	}
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return service.Task{}, fmt.Errorf("%w: title must not be empty", service.ErrValidation)
		}
		f.tasks[i].Title = *p.Title
	}
	if p.Description != nil {
		desc := *p.Description
		f.tasks[i].Description = &desc
		if desc == "" {
			f.tasks[i].Description = nil
		}
	}
	if p.IsDone != nil {
		f.tasks[i].IsDone = *p.IsDone
		f.tasks[i].Status = service.StatusTodo
		if *p.IsDone {
			f.tasks[i].Status = service.StatusDone
		}
	}
	return f.tasks[i], nil
}

// ToggleDone implements service.Service.
func (f *FakeService) ToggleDone(ctx context.Context, id int64) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ToggleErr != nil {
		return service.Task{}, f.ToggleErr
	}
	i := f.indexLocked(id)
	if i < 0 {
		return service.Task{}, service.ErrNotFound
	}
	done := !f.tasks[i].Done()
	f.tasks[i].IsDone = done
	f.tasks[i].Status = service.StatusTodo
	if done {
		f.tasks[i].Status = service.StatusDone
	}
	return f.tasks[i], nil
}

// Delete implements service.Service.
func (f *FakeService) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	f.DeleteCalls = append(f.DeleteCalls, id)
	f.deletesInFlight++
	f.MaxDeletes = max(f.MaxDeletes, f.deletesInFlight)
	delay := f.DeleteDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletesInFlight--
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if err, ok := f.DeleteErrs[id]; ok && err != nil {
		return err
	}
	i := f.indexLocked(id)
	if i < 0 {
		return service.ErrNotFound
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

// MaxConcurrentDeletes returns the highest number of deletes seen in flight.
func (f *FakeService) MaxConcurrentDeletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.MaxDeletes
}
