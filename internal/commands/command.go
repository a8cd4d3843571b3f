// Package commands holds the todoctl subcommands. Each file registers one
// command with DefaultRegistry from its init function.
package commands

import (
	"context"
	"flag"
	"io"

	"todoctl/internal/config"
	"todoctl/internal/service"
)

// Command is one todoctl subcommand.
//
// The dispatcher parses common flags, then the flags added by
// RegisterFlags, and calls Run with what remains. Run writes results to out
// and diagnostics to errOut and returns an exit code from package exitcode.
type Command interface {
	Name() string
	Aliases() []string

	// Synopsis is the one-line summary shown by help; Usage is the
	// invocation line shown by help <command>.
	Synopsis() string
	Usage() string

	// NeedsService reports whether Run talks to the task store. When it
	// is false the dispatcher skips building a client and svc is nil.
	NeedsService() bool

	RegisterFlags(fs *flag.FlagSet)
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int
}
