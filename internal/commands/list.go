package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/output"
	"todoctl/internal/query"
	"todoctl/internal/service"
	"todoctl/internal/session"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `todoctl` (no args) and `todoctl list [flags]`.
type ListCmd struct {
	filter   string
	search   string
	page     int
	pageSize int
	long     bool
}

// SetPage sets the page number (for testing).
func (c *ListCmd) SetPage(page int) {
	c.page = page
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "todoctl list [--filter all|done|todo] [--search <text>] [--page <n>] [--page-size 10|20|50] [--long]"
}
func (c *ListCmd) NeedsService() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.StringVar(&c.filter, "f", "all", "")
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.search, "s", "", "")
	fs.IntVar(&c.page, "page", 1, "")
	fs.IntVar(&c.pageSize, "page-size", 0, "")
	fs.BoolVar(&c.long, "long", false, "")
	fs.BoolVar(&c.long, "l", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.page < 1 {
		fmt.Fprintf(errOut, "error: invalid page number: %d\n", c.page)
		return exitcode.UserError
	}

	st, err := initialState(cfg, c.filter, c.search, c.pageSize)
	if err != nil {
		return fail(errOut, err)
	}

	s := session.New(svc, st)
	defer s.Close()

	if err := s.Refresh(ctx); err != nil {
		return fail(errOut, err)
	}
	if c.page > 1 {
		if err := s.JumpPage(ctx, strconv.Itoa(c.page)); err != nil {
			return fail(errOut, err)
		}
	}

	v := s.View()
	if len(v.Items) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}
	for _, task := range v.Items {
		if c.long {
			output.FormatTaskDetail(out, task)
		} else {
			output.FormatTask(out, task, false)
		}
	}
	if !cfg.Quiet {
		output.FormatPageFooter(out, v.State)
	}
	return exitcode.Success
}

// initialState builds a query state from flag values. A page size of 0
// means the configured default.
func initialState(cfg *config.Config, filter, search string, pageSize int) (query.State, error) {
	f, err := service.ParseFilter(filter)
	if err != nil {
		return query.State{}, err
	}
	if pageSize == 0 {
		pageSize = cfg.PageSize
	}
	if pageSize == 0 {
		pageSize = query.DefaultPageSize
	}
	if !query.ValidPageSize(pageSize) {
		return query.State{}, fmt.Errorf("%w: page size must be one of %v, got %d",
			service.ErrValidation, query.PageSizes, pageSize)
	}
	return query.NewState().WithFilter(f).WithSearch(search).WithPageSize(pageSize), nil
}
