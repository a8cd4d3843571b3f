package cli_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"todoctl/internal/cli"
	"todoctl/internal/commands"
	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/service"
	"todoctl/internal/testutil"
)

// testFactory creates a service factory that returns the given FakeService.
func testFactory(svc *testutil.FakeService) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return svc, nil
	}
}

// isolate points config lookups at an empty directory and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvPageSize, "")
	t.Setenv(config.EnvLogLevel, "")
	return filepath.Join(dir, config.AppName)
}

func run(d *cli.Dispatcher, args ...string) (stdout, stderr string, code int) {
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	isolate(t)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(dispatcher, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	isolate(t)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(dispatcher, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	isolate(t)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	stdout, stderr, code := run(dispatcher, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	isolate(t)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	stdout, stderr, code := run(dispatcher, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "todoctl 0.1.0\n" {
		t.Errorf("expected 'todoctl 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	isolate(t)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(dispatcher, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	isolate(t)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	_, stderr, code := run(dispatcher, "list", "--page")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -page\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_NoArgsListsTasks(t *testing.T) {
	isolate(t)
	svc := testutil.NewFakeService()
	svc.AddTask("Buy milk")
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	stdout, stderr, code := run(dispatcher)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != " [ ]    1  Buy milk\n1-1 of 1 (page 1/1)\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestDispatcher_ListFlagsReachStore(t *testing.T) {
	dir := isolate(t)
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	_, stderr, code := run(dispatcher, "ls", "--config", dir, "-f", "todo", "--search", "milk", "--page-size", "20")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if len(svc.ListCalls) != 1 {
		t.Fatalf("expected 1 list call, got %d", len(svc.ListCalls))
	}
	want := service.ListParams{Filter: service.FilterTodo, Search: "milk", Limit: 20, Offset: 0}
	if svc.ListCalls[0] != want {
		t.Errorf("expected %+v, got %+v", want, svc.ListCalls[0])
	}
}

func TestDispatcher_QuietAdd(t *testing.T) {
	dir := isolate(t)
	svc := testutil.NewFakeService()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

	stdout, _, code := run(dispatcher, "add", "--config", dir, "--quiet", "Buy", "milk")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if tasks := svc.Tasks(); len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Errorf("unexpected tasks %+v", tasks)
	}
}

func TestDispatcher_ConfigFileAndOverride(t *testing.T) {
	dir := isolate(t)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	yaml := "base_url: http://tasks.internal:8000\npage_size: 50\n"
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	var seen *config.Config
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		seen = cfg
		return testutil.NewFakeService(), nil
	}
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	_, stderr, code := run(dispatcher, "list", "--base-url", "https://override.example")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if seen.BaseURL != "https://override.example" {
		t.Errorf("expected flag to win over config.yaml, got %q", seen.BaseURL)
	}
	if seen.PageSize != 50 {
		t.Errorf("expected page size from config.yaml, got %d", seen.PageSize)
	}
}

func TestDispatcher_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		args []string
		want string
	}{
		{"bad page size", "page_size: 15\n", nil, "page_size"},
		{"bad base url flag", "", []string{"--base-url", "ftp://x"}, "base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.yaml != "" {
				if err := os.MkdirAll(dir, 0700); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(tt.yaml), 0600); err != nil {
					t.Fatal(err)
				}
			}
			svc := testutil.NewFakeService()
			dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))

			_, stderr, code := run(dispatcher, append([]string{"list"}, tt.args...)...)

			if code != exitcode.AuthError {
				t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("expected stderr to mention %q, got %q", tt.want, stderr)
			}
			if len(svc.ListCalls) != 0 {
				t.Error("store should not be called with an invalid config")
			}
		})
	}
}

func TestDispatcher_FactoryErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"auth", fmt.Errorf("%w: token.json missing", service.ErrAuth), exitcode.AuthError, "error: auth error: "},
		{"other", errors.New("dial tcp: refused"), exitcode.BackendError, "error: backend error: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
				return nil, tt.err
			}
			dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

			_, stderr, code := run(dispatcher, "list")

			if code != tt.wantCode {
				t.Errorf("expected exit code %d, got %d", tt.wantCode, code)
			}
			if !strings.HasPrefix(stderr, tt.wantMsg) {
				t.Errorf("expected stderr to start with %q, got %q", tt.wantMsg, stderr)
			}
		})
	}
}

func TestDispatcher_NoFactory(t *testing.T) {
	isolate(t)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	_, _, code := run(dispatcher, "list")

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
}

func TestDispatcher_DebugLogsToStderr(t *testing.T) {
	isolate(t)
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(testutil.NewFakeService()))

	stdout, stderr, code := run(dispatcher, "version", "--debug")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "todoctl 0.1.0\n" {
		t.Errorf("debug output should not reach stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "command=version") {
		t.Errorf("expected a debug line on stderr, got %q", stderr)
	}
}
