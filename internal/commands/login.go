package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
)

// tokenExchangeTimeout bounds the client credentials exchange.
const tokenExchangeTimeout = 30 * time.Second

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command. With --token it stores the given
// bearer token; otherwise it runs the client credentials grant described by
// oauth_client.json.
type LoginCmd struct {
	token string
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Obtain and store an access token" }
func (c *LoginCmd) Usage() string      { return "todoctl login [common flags] [--token <token>]" }
func (c *LoginCmd) NeedsService() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	c.token = ""
	fs.StringVar(&c.token, "token", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if token := strings.TrimSpace(c.token); token != "" {
		return c.save(cfg, &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, out, errOut)
	}

	if !cfg.HasOAuthClient() {
		fmt.Fprintf(errOut, "error: %s not found in %s\n\n", config.OAuthClientFile, cfg.Dir)
		fmt.Fprintln(errOut, "Either pass a token directly:")
		fmt.Fprintln(errOut, "   todoctl login --token <token>")
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "or save client credentials as:")
		fmt.Fprintf(errOut, "   %s\n", cfg.OAuthClientPath())
		fmt.Fprintln(errOut, `   {"client_id": "...", "client_secret": "...", "token_url": "https://.../token"}`)
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "Then run 'todoctl login' again.")
		return exitcode.AuthError
	}

	if token, err := cfg.LoadToken(); err == nil && token.Valid() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	client, err := cfg.LoadOAuthClient()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	token, err := client.Credentials().Token(exchangeCtx)
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to obtain token: %v\n", err)
		return exitcode.AuthError
	}
	return c.save(cfg, token, out, errOut)
}

func (c *LoginCmd) save(cfg *config.Config, token *oauth2.Token, out, errOut io.Writer) int {
	if err := cfg.SaveToken(token); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
