package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// optionalString is a string flag that records whether it was given.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optionalString
	description optionalString
}

func (c *EditCmd) Name() string       { return "edit" }
func (c *EditCmd) Aliases() []string  { return nil }
func (c *EditCmd) Synopsis() string   { return "Change the title or description of a task" }
func (c *EditCmd) Usage() string      { return "todoctl edit [--title <text>] [--description <text>] <id>" }
func (c *EditCmd) NeedsService() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title = optionalString{}
	c.description = optionalString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "description", "")
	fs.Var(&c.description, "d", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if !c.title.set && !c.description.set {
		fmt.Fprintln(errOut, "error: nothing to change (use --title or --description)")
		return exitcode.UserError
	}

	var params service.UpdateParams
	if c.title.set {
		title := strings.TrimSpace(c.title.value)
		if title == "" {
			fmt.Fprintln(errOut, "error: title required")
			return exitcode.UserError
		}
		params.Title = &title
	}
	if c.description.set {
		desc := strings.TrimSpace(c.description.value)
		params.Description = &desc
	}

	if _, err := svc.Update(ctx, id, params); err != nil {
		return fail(errOut, fmt.Errorf("task %d: %w", id, err))
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
