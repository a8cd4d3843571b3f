package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. It flips the completion flag, so
// running it on a completed task reopens it.
type DoneCmd struct{}

func (c *DoneCmd) Name() string       { return "done" }
func (c *DoneCmd) Aliases() []string  { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string   { return "Toggle a task between open and completed" }
func (c *DoneCmd) Usage() string      { return "todoctl done <id>" }
func (c *DoneCmd) NeedsService() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	task, err := svc.ToggleDone(ctx, id)
	if err != nil {
		return fail(errOut, fmt.Errorf("task %d: %w", id, err))
	}

	if !cfg.Quiet {
		if task.Done() {
			fmt.Fprintln(out, "done")
		} else {
			fmt.Fprintln(out, "reopened")
		}
	}
	return exitcode.Success
}
