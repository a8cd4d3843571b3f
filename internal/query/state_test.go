package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"todoctl/internal/service"
)

func TestNewState_Defaults(t *testing.T) {
	s := NewState()

	assert.Equal(t, service.FilterAll, s.Filter)
	assert.Equal(t, 1, s.Page)
	assert.Equal(t, DefaultPageSize, s.PageSize)
	assert.Equal(t, 1, s.TotalPages())
	assert.Equal(t, 0, s.RangeStart())
	assert.Equal(t, 0, s.RangeEnd())
}

func TestState_TotalPagesAndClamp(t *testing.T) {
	s := NewState().WithPageSize(20).WithTotal(45)

	assert.Equal(t, 3, s.TotalPages())
	assert.Equal(t, 3, s.GotoPage(5).Page)
	assert.Equal(t, 1, s.GotoPage(0).Page)
	assert.Equal(t, 1, s.GotoPage(-4).Page)
}

func TestState_Range(t *testing.T) {
	s := NewState().WithPageSize(20).WithTotal(45).GotoPage(3)

	assert.Equal(t, 41, s.RangeStart())
	assert.Equal(t, 45, s.RangeEnd())

	s = s.GotoPage(2)
	assert.Equal(t, 21, s.RangeStart())
	assert.Equal(t, 40, s.RangeEnd())
}

func TestState_Params(t *testing.T) {
	s := NewState().WithFilter(service.FilterTodo).WithSearch("  milk ").WithPageSize(20).WithTotal(100).GotoPage(3)

	assert.Equal(t, service.ListParams{
		Filter: service.FilterTodo,
		Search: "milk",
		Limit:  20,
		Offset: 40,
	}, s.Params())
}

func TestState_StructuralChangesResetPage(t *testing.T) {
	base := NewState().WithTotal(100).GotoPage(4)
	assert.Equal(t, 4, base.Page)

	assert.Equal(t, 1, base.WithFilter(service.FilterDone).Page)
	assert.Equal(t, 1, base.WithSearch("x").Page)
	assert.Equal(t, 1, base.WithPageSize(50).Page)
}

func TestState_UnchangedValuesKeepPage(t *testing.T) {
	base := NewState().WithTotal(100).GotoPage(4)

	assert.Equal(t, 4, base.WithFilter(service.FilterAll).Page)
	assert.Equal(t, 4, base.WithPageSize(DefaultPageSize).Page)
	assert.Equal(t, 4, base.WithPageSize(7).Page, "invalid size is ignored")
	assert.Equal(t, 4, base.CommitSearch().Page)
}

func TestState_SearchInputIsNotCommitted(t *testing.T) {
	s := NewState().WithSearchInput("mil")

	assert.Equal(t, "mil", s.SearchInput)
	assert.Equal(t, "", s.Search)
	assert.Equal(t, "", s.Params().Search)

	s = s.CommitSearch()
	assert.Equal(t, "mil", s.Search)
}

func TestState_NextPrev(t *testing.T) {
	s := NewState().WithTotal(25)

	s = s.NextPage()
	assert.Equal(t, 2, s.Page)
	s = s.NextPage().NextPage()
	assert.Equal(t, 3, s.Page, "stops at last page")
	s = s.PrevPage().PrevPage().PrevPage()
	assert.Equal(t, 1, s.Page, "stops at page 1")
}

func TestState_ApplyPageInput(t *testing.T) {
	s := NewState().WithPageSize(20).WithTotal(45).GotoPage(2)

	assert.Equal(t, 2, s.ApplyPageInput("abc").Page)
	assert.Equal(t, 2, s.ApplyPageInput("").Page)
	assert.Equal(t, 3, s.ApplyPageInput("5").Page)
	assert.Equal(t, 1, s.ApplyPageInput("0").Page)
	assert.Equal(t, 3, s.ApplyPageInput(" 3 ").Page)
}

func TestState_WithTotalReclamps(t *testing.T) {
	s := NewState().WithTotal(100).GotoPage(10)

	s = s.WithTotal(35)
	assert.Equal(t, 4, s.Page)

	s = s.WithTotal(0)
	assert.Equal(t, 1, s.Page)
	assert.Equal(t, 1, s.TotalPages())
}

func TestDiff(t *testing.T) {
	base := NewState().WithTotal(100)

	assert.Equal(t, Change{}, Diff(base, base))
	assert.Equal(t, Change{Fetch: true}, Diff(base, base.NextPage()))
	assert.Equal(t, Change{Fetch: true, Structural: true}, Diff(base, base.WithFilter(service.FilterDone)))
	assert.Equal(t, Change{Fetch: true, Structural: true}, Diff(base, base.WithPageSize(50)))
	assert.Equal(t, Change{}, Diff(base, base.WithSearchInput("typing")))
}

func TestValidPageSize(t *testing.T) {
	for _, n := range []int{10, 20, 50} {
		assert.True(t, ValidPageSize(n))
	}
	for _, n := range []int{0, 5, 100} {
		assert.False(t, ValidPageSize(n))
	}
}
