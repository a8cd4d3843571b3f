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
	Register(&LogoutCmd{})
}

// LogoutCmd forgets the access token for the configured store. With --all
// the client credentials go too, so the next login needs a fresh
// oauth_client.json.
type LogoutCmd struct {
	all bool
}

func (c *LogoutCmd) Name() string       { return "logout" }
func (c *LogoutCmd) Aliases() []string  { return nil }
func (c *LogoutCmd) Synopsis() string   { return "Forget the stored access token" }
func (c *LogoutCmd) Usage() string      { return "todoctl logout [--all] [common flags]" }
func (c *LogoutCmd) NeedsService() bool { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	var removed []string
	if cfg.HasToken() {
		if err := cfg.RemoveToken(); err != nil {
			fmt.Fprintf(errOut, "error: remove %s: %v\n", cfg.TokenPath(), err)
			return exitcode.AuthError
		}
		removed = append(removed, cfg.TokenPath())
	}
	if c.all && cfg.HasOAuthClient() {
		if err := cfg.RemoveOAuthClient(); err != nil {
			fmt.Fprintf(errOut, "error: remove %s: %v\n", cfg.OAuthClientPath(), err)
			return exitcode.AuthError
		}
		removed = append(removed, cfg.OAuthClientPath())
	}

	if cfg.Quiet {
		return exitcode.Success
	}
	if len(removed) == 0 {
		fmt.Fprintln(out, "not logged in")
		return exitcode.Success
	}
	fmt.Fprintf(out, "logged out of %s\n", storeName(cfg))
	for _, path := range removed {
		fmt.Fprintf(out, "  removed %s\n", path)
	}
	return exitcode.Success
}

func storeName(cfg *config.Config) string {
	if cfg.BaseURL == "" {
		return config.DefaultBaseURL
	}
	return cfg.BaseURL
}
