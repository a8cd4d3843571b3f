package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"todoctl/internal/bulk"
	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/logging"
	"todoctl/internal/service"
)

func init() {
	Register(&ExportCmd{})
}

// ExportCmd implements the export command.
type ExportCmd struct {
	filter string
	search string
	path   string

	now func() time.Time
}

// SetClock sets the clock used for the default file name (for testing).
func (c *ExportCmd) SetClock(now func() time.Time) {
	c.now = now
}

func (c *ExportCmd) Name() string      { return "export" }
func (c *ExportCmd) Aliases() []string { return nil }
func (c *ExportCmd) Synopsis() string  { return "Write matching tasks to a CSV file" }
func (c *ExportCmd) Usage() string {
	return "todoctl export [--filter all|done|todo] [--search <text>] [--out <path>|-]"
}
func (c *ExportCmd) NeedsService() bool { return true }

func (c *ExportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.StringVar(&c.filter, "f", "all", "")
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.search, "s", "", "")
	fs.StringVar(&c.path, "out", "", "")
	fs.StringVar(&c.path, "o", "", "")
}

func (c *ExportCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	filter, err := service.ParseFilter(c.filter)
	if err != nil {
		return fail(errOut, err)
	}

	path := c.path
	if path == "" {
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		path = bulk.FileName(now())
	}

	ctx = logging.WithOperation(ctx, "export")
	n, err := exportTo(ctx, svc, filter, c.search, path, out)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet && path != "-" {
		fmt.Fprintf(out, "exported %d tasks to %s\n", n, path)
	}
	return exitcode.Success
}

// exportTo writes the export to path, or to stdout when path is "-".
// A failed export removes the partial file.
func exportTo(ctx context.Context, svc service.Lister, filter service.Filter, search, path string, stdout io.Writer) (int, error) {
	if path == "-" {
		return bulk.Export(ctx, svc, filter, search, stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := bulk.Export(ctx, svc, filter, search, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", path, cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}
