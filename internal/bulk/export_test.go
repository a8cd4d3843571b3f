package bulk

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoctl/internal/service"
	"todoctl/internal/testutil"
)

// lyingLister reports a larger total than it can deliver.
type lyingLister struct {
	items []service.Task
	calls []service.ListParams
}

func (l *lyingLister) List(ctx context.Context, p service.ListParams) (service.ListResult, error) {
	l.calls = append(l.calls, p)
	start := min(p.Offset, len(l.items))
	end := min(start+p.Limit, len(l.items))
	return service.ListResult{Items: l.items[start:end], Total: len(l.items) + 100}, nil
}

func TestCollectAll_PagesUntilTotal(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.AddTasks(450)

	tasks, err := CollectAll(context.Background(), fake, service.FilterAll, "")
	require.NoError(t, err)
	assert.Len(t, tasks, 450)

	require.Len(t, fake.ListCalls, 3)
	for i, call := range fake.ListCalls {
		assert.Equal(t, ExportPageSize, call.Limit)
		assert.Equal(t, i*ExportPageSize, call.Offset)
	}
}

func TestCollectAll_StopsOnEmptyPage(t *testing.T) {
	l := &lyingLister{items: make([]service.Task, 5)}

	tasks, err := CollectAll(context.Background(), l, service.FilterAll, "")
	require.NoError(t, err)
	assert.Len(t, tasks, 5)
	assert.Len(t, l.calls, 2)
}

func TestCollectAll_FilterAndSearch(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.AddTask("Buy milk")
	fake.AddDoneTask("Buy bread")
	fake.AddTask("Walk dog")

	tasks, err := CollectAll(context.Background(), fake, service.FilterTodo, "buy")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.Equal(t, service.FilterTodo, fake.ListCalls[0].Filter)
	assert.Equal(t, "buy", fake.ListCalls[0].Search)
}

func TestCollectAll_ListError(t *testing.T) {
	fake := testutil.NewFakeService()
	fake.ListErr = errors.New("connection refused")

	_, err := CollectAll(context.Background(), fake, service.FilterAll, "")
	assert.ErrorContains(t, err, "connection refused")
}

func TestWriteCSV(t *testing.T) {
	desc := "two\nlines"
	finish := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	tasks := []service.Task{
		{Title: "Buy milk, eggs", Description: &desc, UserID: 7, FinishDate: &finish, IsDone: true},
		{Title: `Say "hi"`},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tasks))

	want := "title,description,user_id,finish_date,status\n" +
		"\"Buy milk, eggs\",\"two\nlines\",7,2025-03-04T10:30:00Z,1\n" +
		"\"Say \"\"hi\"\"\",,,,0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_StatusFromEitherField(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []service.Task{{Title: "a", Status: service.StatusDone}}))
	assert.True(t, strings.HasSuffix(buf.String(), "a,,,,1\n"))
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 11, 5, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "tasks-2025-11-05.csv", FileName(now))
}

func TestExport_RoundTripsThroughImport(t *testing.T) {
	src := testutil.NewFakeService()
	ctx := context.Background()
	desc := "  padded, with comma  "
	_, err := src.Create(ctx, service.CreateParams{Title: "first", Description: &desc})
	require.NoError(t, err)
	src.AddDoneTask("second \"quoted\"")

	var buf bytes.Buffer
	n, err := Export(ctx, src, service.FilterAll, "", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := testutil.NewFakeService()
	res, err := Import(ctx, dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)

	got := dst.Tasks()
	require.Len(t, got, 2)
	// Export is newest first and import preserves file order, so the order flips.
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "padded, with comma", got[0].DescriptionText())
	assert.False(t, got[0].Done())
	assert.Equal(t, "second \"quoted\"", got[1].Title)
	assert.True(t, got[1].Done())
}
