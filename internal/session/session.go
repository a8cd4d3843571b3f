// Package session owns the state of one interactive task view: the query,
// the visible page, the selection and the last notice or error.
//
// Every mutation is confirmed by refetching the current page; nothing is
// updated optimistically. Structural query changes (filter, search, page
// size) clear the selection, and every refresh drops selected IDs that are
// no longer visible.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"todoctl/internal/bulk"
	"todoctl/internal/logging"
	"todoctl/internal/query"
	"todoctl/internal/selection"
	"todoctl/internal/service"
)

var (
	// ErrNothingSelected is returned by DeleteSelected on an empty selection.
	ErrNothingSelected = fmt.Errorf("%w: no tasks selected", service.ErrValidation)

	// ErrNotVisible is returned when selecting a task that is not on the
	// current page.
	ErrNotVisible = fmt.Errorf("%w: task is not on this page", service.ErrValidation)

	errEmptyTitle = fmt.Errorf("%w: %w", service.ErrValidation, service.ErrEmptyTitle)
)

// View is a snapshot of the session for rendering.
type View struct {
	State    query.State
	Items    []service.Task
	Selected selection.Set
	Loading  bool

	// PendingSearch is search text typed but not yet committed.
	PendingSearch string

	Notice string
	Err    error
}

// IDs returns the IDs of the visible tasks.
func (v View) IDs() []int64 {
	ids := make([]int64, len(v.Items))
	for i, t := range v.Items {
		ids[i] = t.ID
	}
	return ids
}

// AllSelected reports whether every visible task is selected.
func (v View) AllSelected() bool {
	return v.Selected.AllVisibleSelected(v.IDs())
}

// SomeSelected reports whether some but not all visible tasks are selected.
func (v View) SomeSelected() bool {
	return v.Selected.SomeVisibleSelected(v.IDs())
}

// Session orchestrates list state and task operations over a Service.
// It is safe for concurrent use; no lock is held across a store call.
type Session struct {
	svc         service.Service
	ctrl        *query.Controller
	search      *query.Debouncer
	deleteLimit int
	onSearch    func(View)

	debounceInterval time.Duration
	afterFunc        query.AfterFunc

	mu        sync.Mutex
	sel       selection.Set
	items     []service.Task
	notice    string
	err       error
	searchCtx context.Context
	shownGen  uint64 // generation of the page in items
}

// Option configures a Session.
type Option func(*Session)

// WithDeleteConcurrency bounds the deletes in flight during DeleteSelected.
func WithDeleteConcurrency(n int) Option {
	return func(s *Session) { s.deleteLimit = n }
}

// WithSearchDebounce replaces the search quiet period and timer source.
func WithSearchDebounce(interval time.Duration, after query.AfterFunc) Option {
	return func(s *Session) {
		s.debounceInterval = interval
		if after != nil {
			s.afterFunc = after
		}
	}
}

// WithSearchHook registers fn to receive the view after a debounced search
// has been applied, whether or not the fetch succeeded.
func WithSearchHook(fn func(View)) Option {
	return func(s *Session) { s.onSearch = fn }
}

// New creates a session starting at initial. Call Refresh to load the
// first page.
func New(svc service.Service, initial query.State, opts ...Option) *Session {
	s := &Session{
		svc:              svc,
		ctrl:             query.NewController(svc, initial),
		deleteLimit:      bulk.DefaultDeleteConcurrency,
		debounceInterval: query.DebounceInterval,
		afterFunc:        query.StdAfterFunc,
		searchCtx:        context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.search = query.NewDebouncer(s.debounceInterval, s.commitSearch, query.WithAfterFunc(s.afterFunc))
	return s
}

// Close discards any pending search.
func (s *Session) Close() {
	s.search.Stop()
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	pending, _ := s.search.Pending()

	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]service.Task, len(s.items))
	copy(items, s.items)
	return View{
		State:         s.ctrl.State(),
		Items:         items,
		Selected:      s.sel,
		Loading:       s.ctrl.Loading(),
		PendingSearch: pending,
		Notice:        s.notice,
		Err:           s.err,
	}
}

// begin clears the previous notice and error.
func (s *Session) begin() {
	s.mu.Lock()
	s.notice = ""
	s.err = nil
	s.mu.Unlock()
}

func (s *Session) setNotice(format string, args ...any) {
	s.mu.Lock()
	s.notice = fmt.Sprintf(format, args...)
	s.mu.Unlock()
}

// fail records err as the session error and returns it.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	return err
}

// Refresh refetches the current page.
func (s *Session) Refresh(ctx context.Context) error {
	s.begin()
	return s.refresh(ctx, false)
}

// refresh fetches the current page and reconciles the selection with it.
// A stale response is not an error: a newer fetch will land.
func (s *Session) refresh(ctx context.Context, clearSelection bool) error {
	page, err := s.ctrl.Refresh(ctx)
	if errors.Is(err, query.ErrStale) {
		return nil
	}
	if err != nil {
		return s.fail(fmt.Errorf("load tasks: %w", err))
	}

	s.show(page, clearSelection)
	return nil
}

// show installs page as the visible items unless a newer page is already
// shown. It reports whether the page was used.
func (s *Session) show(page query.Page, clearSelection bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page.Gen < s.shownGen {
		return false
	}
	s.shownGen = page.Gen
	s.items = page.Items
	if clearSelection {
		s.sel = s.sel.Clear()
	}
	s.sel = s.sel.Reconcile(page.IDs())
	return true
}

// apply runs a query transition and fetches when it changed what is shown.
// If the fetch fails the transition is rolled back.
func (s *Session) apply(ctx context.Context, fn func(query.State) query.State) error {
	var before, after query.State
	change := s.ctrl.Update(func(st query.State) query.State {
		before = st
		after = fn(st)
		return after
	})
	if !change.Fetch {
		return nil
	}

	err := s.refresh(ctx, change.Structural)
	if err != nil {
		s.ctrl.Update(func(cur query.State) query.State {
			if cur == after {
				return before
			}
			return cur
		})
	}
	return err
}

// SetFilter changes the completion filter and returns to page 1.
func (s *Session) SetFilter(ctx context.Context, f service.Filter) error {
	s.begin()
	return s.apply(ctx, func(st query.State) query.State { return st.WithFilter(f) })
}

// Search records search text and commits it once typing has paused.
func (s *Session) Search(ctx context.Context, text string) {
	s.ctrl.Update(func(st query.State) query.State { return st.WithSearchInput(text) })

	s.mu.Lock()
	s.searchCtx = ctx
	s.mu.Unlock()

	s.search.Push(text)
}

// FlushSearch commits pending search text immediately.
func (s *Session) FlushSearch() bool {
	return s.search.Flush()
}

func (s *Session) commitSearch(string) {
	s.mu.Lock()
	ctx := s.searchCtx
	s.mu.Unlock()

	s.begin()
	_ = s.apply(ctx, func(st query.State) query.State { return st.CommitSearch() })
	if s.onSearch != nil {
		s.onSearch(s.View())
	}
}

// SetPageSize changes the page size and returns to page 1.
func (s *Session) SetPageSize(ctx context.Context, n int) error {
	s.begin()
	if !query.ValidPageSize(n) {
		return s.fail(fmt.Errorf("%w: page size must be one of %v", service.ErrValidation, query.PageSizes))
	}
	return s.apply(ctx, func(st query.State) query.State { return st.WithPageSize(n) })
}

// NextPage moves forward one page.
func (s *Session) NextPage(ctx context.Context) error {
	s.begin()
	return s.apply(ctx, query.State.NextPage)
}

// PrevPage moves back one page.
func (s *Session) PrevPage(ctx context.Context) error {
	s.begin()
	return s.apply(ctx, query.State.PrevPage)
}

// JumpPage moves to a typed page number. Non-numeric text is ignored and
// out-of-range numbers are clamped.
func (s *Session) JumpPage(ctx context.Context, text string) error {
	s.begin()
	return s.apply(ctx, func(st query.State) query.State { return st.ApplyPageInput(text) })
}

// ToggleSelect selects or deselects a visible task.
func (s *Session) ToggleSelect(id int64) error {
	s.begin()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.items {
		if t.ID == id {
			s.sel = s.sel.ToggleOne(id)
			return nil
		}
	}
	s.err = ErrNotVisible
	return ErrNotVisible
}

// ToggleSelectAll selects every visible task, or clears the selection when
// all of them are already selected.
func (s *Session) ToggleSelectAll() {
	s.begin()
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, len(s.items))
	for i, t := range s.items {
		ids[i] = t.ID
	}
	s.sel = s.sel.ToggleAllVisible(ids)
}

// Create creates a task. A blank title is rejected without a request.
func (s *Session) Create(ctx context.Context, title, description string) (service.Task, error) {
	s.begin()
	title = strings.TrimSpace(title)
	if title == "" {
		return service.Task{}, s.fail(errEmptyTitle)
	}

	params := service.CreateParams{Title: title}
	if desc := strings.TrimSpace(description); desc != "" {
		params.Description = &desc
	}
	task, err := s.svc.Create(ctx, params)
	if err != nil {
		return service.Task{}, s.fail(fmt.Errorf("create task: %w", err))
	}

	s.setNotice("Task created")
	return task, s.refresh(ctx, false)
}

// Edit replaces the title and description of a task. A blank title is
// rejected without a request; a blank description clears it.
func (s *Session) Edit(ctx context.Context, id int64, title, description string) (service.Task, error) {
	s.begin()
	title = strings.TrimSpace(title)
	if title == "" {
		return service.Task{}, s.fail(errEmptyTitle)
	}

	desc := strings.TrimSpace(description)
	task, err := s.svc.Update(ctx, id, service.UpdateParams{Title: &title, Description: &desc})
	if err != nil {
		return service.Task{}, s.fail(fmt.Errorf("update task %d: %w", id, err))
	}

	s.setNotice("Task updated")
	return task, s.refresh(ctx, false)
}

// ToggleDone flips the completion flag of a task.
func (s *Session) ToggleDone(ctx context.Context, id int64) (service.Task, error) {
	s.begin()
	task, err := s.svc.ToggleDone(ctx, id)
	if err != nil {
		return service.Task{}, s.fail(fmt.Errorf("toggle task %d: %w", id, err))
	}

	if task.Done() {
		s.setNotice("Task marked done")
	} else {
		s.setNotice("Task reopened")
	}
	return task, s.refresh(ctx, false)
}

// Delete deletes one task.
func (s *Session) Delete(ctx context.Context, id int64) error {
	s.begin()
	if err := s.svc.Delete(ctx, id); err != nil {
		return s.fail(fmt.Errorf("delete task %d: %w", id, err))
	}

	s.setNotice("Task deleted")
	return s.refresh(ctx, false)
}

// DeleteSelected deletes every selected task concurrently. The selection is
// cleared and the page refetched whether or not some deletes failed;
// failures are reported in the result, not as an error.
func (s *Session) DeleteSelected(ctx context.Context) (bulk.DeleteResult, error) {
	s.begin()
	s.mu.Lock()
	ids := s.sel.IDs()
	s.mu.Unlock()

	if len(ids) == 0 {
		return bulk.DeleteResult{}, s.fail(ErrNothingSelected)
	}

	ctx = logging.WithOperation(ctx, "bulk-delete")
	res := bulk.DeleteAll(ctx, s.svc, ids, s.deleteLimit)

	s.mu.Lock()
	s.sel = s.sel.Clear()
	s.mu.Unlock()

	if res.Failed > 0 {
		s.setNotice("Deleted %d, failed %d", res.Succeeded, res.Failed)
	} else {
		s.setNotice("Deleted %d", res.Succeeded)
	}
	return res, s.refresh(ctx, false)
}

// ExportCSV writes every task matching the committed filter and search to w.
func (s *Session) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	s.begin()
	st := s.ctrl.State()

	ctx = logging.WithOperation(ctx, "export")
	n, err := bulk.Export(ctx, s.svc, st.Filter, st.Search, w)
	if err != nil {
		return 0, s.fail(fmt.Errorf("export: %w", err))
	}

	s.setNotice("Exported %d tasks", n)
	return n, nil
}

// ImportCSV creates one task per usable row of r, then refetches the page.
// When a create fails the rows before it stay created and the page is
// refetched all the same.
func (s *Session) ImportCSV(ctx context.Context, r io.Reader) (bulk.ImportResult, error) {
	s.begin()

	ctx = logging.WithOperation(ctx, "import")
	res, err := bulk.Import(ctx, s.svc, r)
	if err != nil {
		var ie *bulk.ImportError
		if errors.As(err, &ie) && ie.Imported > 0 {
			_ = s.refresh(ctx, false)
		}
		return res, s.fail(fmt.Errorf("import: %w", err))
	}

	s.setNotice("Imported %d tasks", res.Imported)
	return res, s.refresh(ctx, false)
}
