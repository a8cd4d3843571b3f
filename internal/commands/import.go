package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"todoctl/internal/bulk"
	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/logging"
	"todoctl/internal/service"
)

func init() {
	Register(&ImportCmd{})
}

// ImportCmd implements the import command.
type ImportCmd struct {
	stdin io.Reader
}

// SetInput sets the reader used for "-" (for testing).
func (c *ImportCmd) SetInput(r io.Reader) {
	c.stdin = r
}

func (c *ImportCmd) Name() string       { return "import" }
func (c *ImportCmd) Aliases() []string  { return nil }
func (c *ImportCmd) Synopsis() string   { return "Create tasks from a CSV file" }
func (c *ImportCmd) Usage() string      { return "todoctl import <file.csv>|-" }
func (c *ImportCmd) NeedsService() bool { return true }

func (c *ImportCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ImportCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: exactly one csv file required")
		return exitcode.UserError
	}

	var r io.Reader
	if args[0] == "-" {
		r = c.stdin
		if r == nil {
			r = os.Stdin
		}
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		defer f.Close()
		r = f
	}

	ctx = logging.WithOperation(ctx, "import")
	res, err := bulk.Import(ctx, svc, r)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		if res.Skipped > 0 {
			fmt.Fprintf(out, "imported %d tasks (%d rows without title skipped)\n", res.Imported, res.Skipped)
		} else {
			fmt.Fprintf(out, "imported %d tasks\n", res.Imported)
		}
	}
	return exitcode.Success
}
