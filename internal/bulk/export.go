// Package bulk implements the bulk interchange pipeline: CSV export of a
// whole filtered result set, CSV import with per-row normalization, and
// concurrent bulk delete with aggregated outcomes.
package bulk

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"todoctl/internal/csvcodec"
	"todoctl/internal/logging"
	"todoctl/internal/service"
)

// ExportPageSize is the page size used while collecting tasks for export.
// It is independent of the view's page size and matches the store's
// maximum limit.
const ExportPageSize = 200

// Header is the fixed column order of exported files.
var Header = []string{"title", "description", "user_id", "finish_date", "status"}

// CollectAll pages through every task matching filter and search.
//
// Collection stops once the number of tasks reaches the total reported with
// the first page, or when a page comes back empty, whichever happens first.
// The second condition guards against a total that is wrong.
func CollectAll(ctx context.Context, lister service.Lister, filter service.Filter, search string) ([]service.Task, error) {
	var (
		tasks  []service.Task
		total  int
		offset int
	)

	for {
		res, err := lister.List(ctx, service.ListParams{
			Filter: filter,
			Search: search,
			Limit:  ExportPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("list tasks at offset %d: %w", offset, err)
		}
		if offset == 0 {
			total = res.Total
		}
		tasks = append(tasks, res.Items...)
		if len(tasks) >= total || len(res.Items) == 0 {
			return tasks, nil
		}
		offset += len(res.Items)
	}
}

// WriteCSV writes the header row and one row per task.
func WriteCSV(w io.Writer, tasks []service.Task) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, csvcodec.EncodeRow(Header)); err != nil {
		return err
	}
	for _, t := range tasks {
		if _, err := fmt.Fprintln(bw, csvcodec.EncodeRow(exportRow(t))); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// exportRow returns the fields of t in Header order.
func exportRow(t service.Task) []string {
	userID := ""
	if t.UserID != 0 {
		userID = strconv.FormatInt(t.UserID, 10)
	}
	finishDate := ""
	if t.FinishDate != nil {
		finishDate = service.FormatTime(*t.FinishDate)
	}
	status := service.StatusTodo
	if t.Done() {
		status = service.StatusDone
	}
	return []string{
		t.Title,
		t.DescriptionText(),
		userID,
		finishDate,
		strconv.Itoa(status),
	}
}

// FileName returns the export file name for the given day.
func FileName(now time.Time) string {
	return "tasks-" + now.Format("2006-01-02") + ".csv"
}

// Export collects every matching task and writes it to w as CSV.
// It returns the number of exported tasks.
func Export(ctx context.Context, lister service.Lister, filter service.Filter, search string, w io.Writer) (int, error) {
	log := logging.WithFields(ctx, "filter", filter, "search", search)

	tasks, err := CollectAll(ctx, lister, filter, search)
	if err != nil {
		return 0, err
	}
	if err := WriteCSV(w, tasks); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}

	log.Info("export finished", "tasks", len(tasks))
	return len(tasks), nil
}
