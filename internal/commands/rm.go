package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todoctl/internal/bulk"
	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/logging"
	"todoctl/internal/output"
	"todoctl/internal/service"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command. Several IDs are deleted concurrently.
type RmCmd struct{}

func (c *RmCmd) Name() string       { return "rm" }
func (c *RmCmd) Aliases() []string  { return []string{"delete"} }
func (c *RmCmd) Synopsis() string   { return "Delete one or more tasks" }
func (c *RmCmd) Usage() string      { return "todoctl rm <id> [<id>...]" }
func (c *RmCmd) NeedsService() bool { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	ids, err := ParseTaskIDs(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	if len(ids) == 1 {
		if err := svc.Delete(ctx, ids[0]); err != nil {
			return fail(errOut, fmt.Errorf("task %d: %w", ids[0], err))
		}
		if !cfg.Quiet {
			fmt.Fprintln(out, "ok")
		}
		return exitcode.Success
	}

	ctx = logging.WithOperation(ctx, "bulk-delete")
	res := bulk.DeleteAll(ctx, svc, ids, cfg.DeleteConcurrency)

	if cfg.Quiet {
		for _, id := range res.FailedIDs() {
			fmt.Fprintf(errOut, "error: task %d: %v\n", id, res.Errors[id])
		}
	} else {
		output.FormatDeleteResult(out, errOut, res)
	}
	return deleteExitCode(res)
}

// deleteExitCode is PartialFailure when some deletes failed, and the code
// of the first failure when all of them did.
func deleteExitCode(res bulk.DeleteResult) int {
	switch {
	case res.Failed == 0:
		return exitcode.Success
	case res.Succeeded > 0:
		return exitcode.PartialFailure
	default:
		return ExitCode(res.Errors[res.FailedIDs()[0]])
	}
}
