// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todoctl/internal/bulk"
	"todoctl/internal/query"
	"todoctl/internal/service"
	"todoctl/internal/session"
)

// FormatTask formats a task row.
// Format: "{SEL}[{X}] {ID:>4}  {TITLE}\n" where SEL is "*" for a selected
// task and X is "x" for a completed one.
func FormatTask(w io.Writer, task service.Task, selected bool) {
	sel := " "
	if selected {
		sel = "*"
	}
	done := " "
	if task.Done() {
		done = "x"
	}
	fmt.Fprintf(w, "%s[%s] %4d  %s\n", sel, done, task.ID, normalizeTitle(task.Title))
}

// FormatTaskDetail formats a single task with its description.
func FormatTaskDetail(w io.Writer, task service.Task) {
	FormatTask(w, task, false)
	if desc := strings.TrimSpace(task.DescriptionText()); desc != "" {
		for _, line := range strings.Split(desc, "\n") {
			fmt.Fprintf(w, "          %s\n", strings.TrimRight(line, "\r"))
		}
	}
}

// FormatPageFooter formats the range line below a page.
// Format: "{START}-{END} of {TOTAL} (page {P}/{N})\n"
func FormatPageFooter(w io.Writer, st query.State) {
	fmt.Fprintf(w, "%d-%d of %d (page %d/%d)\n",
		st.RangeStart(), st.RangeEnd(), st.Total, st.Page, st.TotalPages())
}

// FormatQuery formats the active filter and search when they narrow the list.
func FormatQuery(w io.Writer, st query.State) {
	var parts []string
	if st.Filter != service.FilterAll {
		parts = append(parts, "filter: "+string(st.Filter))
	}
	if st.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", st.Search))
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "[%s]\n", strings.Join(parts, ", "))
	}
}

// FormatView formats a page of a session: query line, rows, footer and the
// selection count.
func FormatView(w io.Writer, v session.View) {
	FormatQuery(w, v.State)
	if len(v.Items) == 0 {
		fmt.Fprintln(w, "no tasks found")
		return
	}
	for _, task := range v.Items {
		FormatTask(w, task, v.Selected.Has(task.ID))
	}
	FormatPageFooter(w, v.State)
	if n := v.Selected.Len(); n > 0 {
		fmt.Fprintf(w, "%d selected\n", n)
	}
}

// FormatDeleteResult formats the outcome of a bulk delete. Failures go to
// errOut, one line per task.
func FormatDeleteResult(out, errOut io.Writer, res bulk.DeleteResult) {
	for _, id := range res.FailedIDs() {
		fmt.Fprintf(errOut, "error: task %d: %v\n", id, res.Errors[id])
	}
	if res.Failed > 0 {
		fmt.Fprintf(out, "deleted %d, failed %d\n", res.Succeeded, res.Failed)
		return
	}
	fmt.Fprintf(out, "deleted %d\n", res.Succeeded)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
