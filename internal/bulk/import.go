package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"todoctl/internal/csvcodec"
	"todoctl/internal/logging"
	"todoctl/internal/service"
)

var (
	// ErrNoDataRows is returned when the file has a header but no rows.
	ErrNoDataRows = errors.New("csv has no data rows")

	// ErrMissingTitle is returned when the header has no title column.
	ErrMissingTitle = errors.New("csv header must include a title column")
)

// ImportError reports a create request that failed mid-import. Rows before
// Record were created and stay created.
type ImportError struct {
	// Record is the 1-based record number in the file; the header is 1.
	Record int

	// Imported is the number of tasks created before the failure.
	Imported int

	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import stopped at record %d after %d tasks: %v", e.Record, e.Imported, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Row is one normalized data row ready to be created.
type Row struct {
	Record int
	Params service.CreateParams
}

// ImportResult summarizes a completed import.
type ImportResult struct {
	Imported int

	// Skipped counts rows whose title was empty.
	Skipped int
}

// columns maps lower-case header names to column indexes; -1 when absent.
type columns struct {
	title, description, userID, finishDate, status int
}

func headerColumns(header []string) columns {
	cols := columns{-1, -1, -1, -1, -1}
	for i, name := range header {
		var slot *int
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "title":
			slot = &cols.title
		case "description":
			slot = &cols.description
		case "user_id":
			slot = &cols.userID
		case "finish_date":
			slot = &cols.finishDate
		case "status":
			slot = &cols.status
		}
		// First occurrence wins on duplicate headers.
		if slot != nil && *slot < 0 {
			*slot = i
		}
	}
	return cols
}

// ParseRows decodes CSV text into create requests.
//
// Records are matched to columns by header name, case-insensitively and in
// any order. Rows with an empty title are skipped and counted. Optional
// values that are empty or do not parse are left unset.
func ParseRows(text string) (rows []Row, skipped int, err error) {
	text = strings.TrimPrefix(text, "\ufeff")
	records := csvcodec.SplitRecords(text)
	if len(records) <= 1 {
		return nil, 0, ErrNoDataRows
	}

	cols := headerColumns(csvcodec.Decode(records[0]))
	if cols.title < 0 {
		return nil, 0, ErrMissingTitle
	}

	for i, record := range records[1:] {
		fields := csvcodec.Decode(record)
		title := cell(fields, cols.title)
		if title == "" {
			skipped++
			continue
		}
		rows = append(rows, Row{
			Record: i + 2,
			Params: normalize(title, fields, cols),
		})
	}
	return rows, skipped, nil
}

func normalize(title string, fields []string, cols columns) service.CreateParams {
	params := service.CreateParams{Title: title}

	if desc := cell(fields, cols.description); desc != "" {
		params.Description = &desc
	}
	if raw := cell(fields, cols.userID); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			params.UserID = &id
		}
	}
	if raw := cell(fields, cols.finishDate); raw != "" {
		if t, err := service.ParseTime(raw); err == nil {
			params.FinishDate = &t
		}
	}

	status := service.StatusTodo
	if raw := cell(fields, cols.status); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n == service.StatusDone {
			status = service.StatusDone
		}
	}
	params.Status = &status

	return params
}

// cell returns the trimmed field at index i, or "" when the column is
// absent or the row is short.
func cell(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// Import reads CSV from r and creates one task per usable row, one request
// at a time and in file order. Header problems fail before any request is
// made. A failed create stops the import and is returned as *ImportError.
func Import(ctx context.Context, creator service.Creator, r io.Reader) (ImportResult, error) {
	log := logging.FromContext(ctx)

	data, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read csv: %w", err)
	}

	rows, skipped, err := ParseRows(string(data))
	if err != nil {
		return ImportResult{}, err
	}
	log.Info("import started", "rows", len(rows), "skipped", skipped)

	result := ImportResult{Skipped: skipped}
	for _, row := range rows {
		if _, err := creator.Create(ctx, row.Params); err != nil {
			log.Warn("import create failed", "record", row.Record, "imported", result.Imported, "error", err)
			return result, &ImportError{Record: row.Record, Imported: result.Imported, Err: err}
		}
		result.Imported++
	}

	log.Info("import finished", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}
