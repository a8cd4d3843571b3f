package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"todoctl/internal/bulk"
	"todoctl/internal/config"
	"todoctl/internal/exitcode"
	"todoctl/internal/output"
	"todoctl/internal/service"
	"todoctl/internal/session"
)

func init() {
	Register(&ShellCmd{})
}

// ShellCmd implements the interactive shell. It reads one verb per line and
// keeps the filter, search, page and selection between lines.
type ShellCmd struct {
	filter   string
	pageSize int

	in  io.Reader
	now func() time.Time
}

// SetInput sets the line source (for testing). Prompts are only printed
// when reading from stdin.
func (c *ShellCmd) SetInput(r io.Reader) {
	c.in = r
}

// SetClock sets the clock used for default export file names (for testing).
func (c *ShellCmd) SetClock(now func() time.Time) {
	c.now = now
}

func (c *ShellCmd) Name() string       { return "shell" }
func (c *ShellCmd) Aliases() []string  { return []string{"sh"} }
func (c *ShellCmd) Synopsis() string   { return "Browse and edit tasks interactively" }
func (c *ShellCmd) Usage() string      { return "todoctl shell [--filter all|done|todo] [--page-size 10|20|50]" }
func (c *ShellCmd) NeedsService() bool { return true }

func (c *ShellCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.filter, "filter", "all", "")
	fs.IntVar(&c.pageSize, "page-size", 0, "")
}

// lockedWriter serializes writes from the read loop and the search timer.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (c *ShellCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	st, err := initialState(cfg, c.filter, "", c.pageSize)
	if err != nil {
		return fail(errOut, err)
	}

	in, prompt := c.in, false
	if in == nil {
		in, prompt = os.Stdin, true
	}

	var mu sync.Mutex
	sh := &shell{
		cfg:    cfg,
		out:    lockedWriter{mu: &mu, w: out},
		errOut: lockedWriter{mu: &mu, w: errOut},
		now:    c.now,
	}
	if sh.now == nil {
		sh.now = time.Now
	}

	sh.s = session.New(svc, st,
		session.WithDeleteConcurrency(cfg.DeleteConcurrency),
		session.WithSearchHook(func(v session.View) {
			mu.Lock()
			defer mu.Unlock()
			if v.Err != nil {
				fmt.Fprintf(errOut, "error: %v\n", v.Err)
				return
			}
			output.FormatView(out, v)
		}),
	)
	defer sh.s.Close()

	if err := sh.s.Refresh(ctx); err != nil {
		return fail(errOut, err)
	}
	output.FormatView(sh.out, sh.s.View())

	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			fmt.Fprint(sh.out, "todoctl> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		// Typing any other verb ends the search burst.
		if verb != "search" {
			sh.s.FlushSearch()
		}
		if !sh.exec(ctx, verb, rest) {
			return exitcode.Success
		}
		if ctx.Err() != nil {
			return exitcode.Success
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(errOut, "error: read input: %v\n", err)
		return exitcode.UserError
	}
	return exitcode.Success
}

type shell struct {
	s      *session.Session
	cfg    *config.Config
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

// exec runs one verb. It returns false when the shell should exit.
func (sh *shell) exec(ctx context.Context, verb, rest string) bool {
	var err error
	switch verb {
	case "quit", "exit", "q":
		return false
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
		return true
	case "ls", "list":
		err = sh.s.Refresh(ctx)
	case "filter":
		var f service.Filter
		if f, err = service.ParseFilter(rest); err == nil {
			err = sh.s.SetFilter(ctx, f)
		}
	case "search":
		sh.s.Search(ctx, rest)
		return true
	case "size":
		var n int
		if n, err = strconv.Atoi(rest); err != nil {
			err = fmt.Errorf("%w: invalid page size: %s", service.ErrValidation, rest)
		} else {
			err = sh.s.SetPageSize(ctx, n)
		}
	case "next", "n":
		err = sh.s.NextPage(ctx)
	case "prev", "p":
		err = sh.s.PrevPage(ctx)
	case "page":
		err = sh.s.JumpPage(ctx, rest)
	case "sel":
		err = sh.toggleSelect(rest)
	case "selall":
		sh.s.ToggleSelectAll()
	case "delsel":
		var res bulk.DeleteResult
		if res, err = sh.s.DeleteSelected(ctx); err == nil || res.Succeeded+res.Failed > 0 {
			output.FormatDeleteResult(sh.out, sh.errOut, res)
		}
	case "add":
		_, err = sh.s.Create(ctx, rest, "")
	case "edit":
		err = sh.edit(ctx, rest)
	case "toggle", "done":
		var id int64
		if id, err = parseID(rest); err == nil {
			_, err = sh.s.ToggleDone(ctx, id)
		}
	case "rm":
		var id int64
		if id, err = parseID(rest); err == nil {
			err = sh.s.Delete(ctx, id)
		}
	case "export":
		err = sh.export(ctx, rest)
	case "import":
		err = sh.importFile(ctx, rest)
	default:
		fmt.Fprintf(sh.errOut, "error: unknown command: %s (try help)\n", verb)
		return true
	}

	if err != nil {
		fmt.Fprintf(sh.errOut, "error: %v\n", err)
		return true
	}
	sh.show(verb)
	return true
}

// show prints the notice of the last action and then the page, except
// after an export.
func (sh *shell) show(verb string) {
	v := sh.s.View()
	if v.Notice != "" && verb != "delsel" && !sh.cfg.Quiet {
		fmt.Fprintln(sh.out, v.Notice)
	}
	if verb == "export" {
		return
	}
	output.FormatView(sh.out, v)
}

func (sh *shell) toggleSelect(rest string) error {
	ids, err := ParseTaskIDs(strings.Fields(rest))
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := sh.s.ToggleSelect(id); err != nil {
			return fmt.Errorf("task %d: %w", id, err)
		}
	}
	return nil
}

// edit handles "edit <id> <title> [| <description>]". Without a description
// part the current description is kept.
func (sh *shell) edit(ctx context.Context, rest string) error {
	idText, text, _ := strings.Cut(rest, " ")
	id, err := parseID(idText)
	if err != nil {
		return err
	}

	title, desc, hasDesc := strings.Cut(text, "|")
	if !hasDesc {
		task, ok := sh.visible(id)
		if !ok {
			return fmt.Errorf("task %d: %w", id, session.ErrNotVisible)
		}
		desc = task.DescriptionText()
	}
	_, err = sh.s.Edit(ctx, id, title, desc)
	return err
}

func (sh *shell) visible(id int64) (service.Task, bool) {
	for _, t := range sh.s.View().Items {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

func (sh *shell) export(ctx context.Context, path string) error {
	if path == "" {
		path = bulk.FileName(sh.now())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	_, err = sh.s.ExportCSV(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	if !sh.cfg.Quiet {
		fmt.Fprintf(sh.out, "wrote %s\n", path)
	}
	return nil
}

func (sh *shell) importFile(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("%w: import needs a file path", service.ErrValidation)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = sh.s.ImportCSV(ctx, f)
	return err
}

const shellHelp = `Commands:
  ls                      Reload the current page
  filter all|done|todo    Change the filter
  search <text>           Search titles (applied after typing pauses)
  size 10|20|50           Change the page size
  next | prev | page <n>  Move between pages
  sel <id> [<id>...]      Toggle selection of tasks on this page
  selall                  Select or clear every task on this page
  delsel                  Delete the selected tasks
  add <title>             Create a task
  edit <id> <title> [| <description>]
  toggle <id>             Toggle a task between open and completed
  rm <id>                 Delete a task
  export [path]           Export matching tasks to CSV
  import <path>           Create tasks from a CSV file
  help                    Show this help
  quit                    Leave the shell
`
