// Package query owns the filter/search/page state of a task list view and
// turns it into list requests.
//
// State is a value type; every transition returns a new State so that
// transitions can be tested without a store. Controller wraps a State with
// request sequencing and the page-convergence rule.
package query

import (
	"strconv"
	"strings"

	"todoctl/internal/service"
)

// DefaultPageSize is the page size of a fresh State.
const DefaultPageSize = 10

// PageSizes are the page sizes a view may use.
var PageSizes = []int{10, 20, 50}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, size := range PageSizes {
		if size == n {
			return true
		}
	}
	return false
}

// State is the query state of a list view.
type State struct {
	Filter service.Filter

	// SearchInput is the raw search text as typed.
	SearchInput string

	// Search is the committed (debounced) search text used for requests.
	Search string

	// Page is 1-based.
	Page int

	PageSize int

	// Total is the match count last reported by the store.
	Total int
}

// NewState returns the default state: all tasks, first page, default size.
func NewState() State {
	return State{
		Filter:   service.FilterAll,
		Page:     1,
		PageSize: DefaultPageSize,
	}
}

// TotalPages returns max(1, ceil(Total/PageSize)).
func (s State) TotalPages() int {
	if s.PageSize <= 0 || s.Total <= 0 {
		return 1
	}
	return (s.Total + s.PageSize - 1) / s.PageSize
}

// RangeStart returns the 1-based index of the first item on the page,
// or 0 when there are no items.
func (s State) RangeStart() int {
	if s.Total == 0 {
		return 0
	}
	return (s.Page-1)*s.PageSize + 1
}

// RangeEnd returns the 1-based index of the last item on the page.
func (s State) RangeEnd() int {
	return min(s.Page*s.PageSize, s.Total)
}

// Params returns the list request for the current page.
func (s State) Params() service.ListParams {
	return service.ListParams{
		Filter: s.Filter,
		Search: strings.TrimSpace(s.Search),
		Limit:  s.PageSize,
		Offset: (s.Page - 1) * s.PageSize,
	}
}

// WithFilter changes the filter. A change resets the page to 1.
func (s State) WithFilter(f service.Filter) State {
	if f == s.Filter {
		return s
	}
	s.Filter = f
	s.Page = 1
	return s
}

// WithSearchInput records raw search text without committing it.
func (s State) WithSearchInput(raw string) State {
	s.SearchInput = raw
	return s
}

// CommitSearch commits the raw search text. A change resets the page to 1.
func (s State) CommitSearch() State {
	if s.SearchInput == s.Search {
		return s
	}
	s.Search = s.SearchInput
	s.Page = 1
	return s
}

// WithSearch sets and commits search text in one step, bypassing debounce.
func (s State) WithSearch(q string) State {
	return s.WithSearchInput(q).CommitSearch()
}

// WithPageSize changes the page size. Sizes outside PageSizes are ignored.
// A change resets the page to 1.
func (s State) WithPageSize(n int) State {
	if n == s.PageSize || !ValidPageSize(n) {
		return s
	}
	s.PageSize = n
	s.Page = 1
	return s
}

// NextPage moves forward one page, stopping at the last page.
func (s State) NextPage() State {
	return s.GotoPage(s.Page + 1)
}

// PrevPage moves back one page, stopping at page 1.
func (s State) PrevPage() State {
	return s.GotoPage(s.Page - 1)
}

// GotoPage moves to page n clamped into [1, TotalPages].
func (s State) GotoPage(n int) State {
	s.Page = clamp(n, 1, s.TotalPages())
	return s
}

// ApplyPageInput handles a typed page number. Non-numeric input leaves the
// page unchanged; numbers are clamped into [1, TotalPages].
func (s State) ApplyPageInput(text string) State {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return s
	}
	return s.GotoPage(n)
}

// WithTotal records the store's total and re-clamps the page.
func (s State) WithTotal(total int) State {
	s.Total = max(total, 0)
	return s.GotoPage(s.Page)
}

// Change describes what a transition changed.
type Change struct {
	// Fetch is set when filter, committed search, page or page size changed.
	Fetch bool

	// Structural is set when filter, committed search or page size changed.
	// Structural changes invalidate page position and selection.
	Structural bool
}

// Diff compares two states.
func Diff(before, after State) Change {
	structural := before.Filter != after.Filter ||
		before.Search != after.Search ||
		before.PageSize != after.PageSize
	return Change{
		Fetch:      structural || before.Page != after.Page,
		Structural: structural,
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
