package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"runtime"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

// VersionCmd prints the release. --verbose adds the toolchain and the
// store this configuration points at, which is what bug reports need.
type VersionCmd struct {
	verbose bool
}

func (c *VersionCmd) Name() string       { return "version" }
func (c *VersionCmd) Aliases() []string  { return nil }
func (c *VersionCmd) Synopsis() string   { return "Print the release and build details" }
func (c *VersionCmd) Usage() string      { return "todoctl version [--verbose|-v]" }
func (c *VersionCmd) NeedsService() bool { return false }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "verbose", false, "")
	fs.BoolVar(&c.verbose, "v", false, "")
}

func (c *VersionCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "todoctl %s\n", Version)
	if !c.verbose {
		return exitcode.Success
	}
	fmt.Fprintf(out, "go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if cfg != nil {
		fmt.Fprintf(out, "store:  %s\n", storeName(cfg))
		fmt.Fprintf(out, "config: %s\n", cfg.Dir)
	}
	return exitcode.Success
}
