package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kyleking/primitive-db/internal/engine"
	"github.com/kyleking/primitive-db/internal/formatter"
	"github.com/kyleking/primitive-db/internal/logging"
	"github.com/kyleking/primitive-db/internal/policy"
)

// DefaultPrompt is shown before every command line
const DefaultPrompt = "primitive-db> "

const helpText = `Commands:
  create_table <name> <column:type>...   create a table (types: int, str, bool)
  drop_table <name>                      drop a table and its rows
  list_tables                            list every table
  insert into <table> values (<v1>, ...) insert a row
  select from <table> [where <c>=<v> [and <c>=<v>]...]
  update <table> set <c>=<v>[, <c>=<v>]... where <c>=<v> [and ...]
  delete from <table> where <c>=<v> [and <c>=<v>]...
  info <table>                           show columns and row count
  cache [clear]                          show or reset the result cache
  help                                   show this help
  exit                                   leave the shell
String values need matching quotes: name="Ann" or name='Ann'.`

// Shell dispatches input lines to an engine session
type Shell struct {
	session   *engine.Session
	formatter *formatter.Formatter
	reporter  policy.Reporter
	out       io.Writer
	prompt    string
	logger    *logging.Logger
}

// Option configures a Shell
type Option func(*Shell)

// WithFormatter sets the table renderer
func WithFormatter(f *formatter.Formatter) Option {
	return func(s *Shell) {
		if f != nil {
			s.formatter = f
		}
	}
}

// WithPrompt sets the prompt text
func WithPrompt(prompt string) Option {
	return func(s *Shell) {
		s.prompt = prompt
	}
}

// WithReporter sets where parse errors are reported. It should be the
// reporter the session was built with.
func WithReporter(r policy.Reporter) Option {
	return func(s *Shell) {
		if r != nil {
			s.reporter = r
		}
	}
}

// New creates a shell writing results to out
func New(session *engine.Session, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		session:   session,
		formatter: formatter.NewFormatter(),
		reporter:  NewConsoleReporter(out),
		out:       out,
		prompt:    DefaultPrompt,
		logger:    logging.WithField("session", session.ID),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run is the interactive loop. It returns on exit, end of input or when ctx
// is cancelled.
func (s *Shell) Run(ctx context.Context, in *bufio.Reader) error {
	fmt.Fprintln(s.out, "***")
	fmt.Fprintln(s.out, "Type help for the list of commands, exit to leave.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(s.out, s.prompt)

		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				fmt.Fprintln(s.out)
				return nil
			}

			return fmt.Errorf("failed to read input: %w", err)
		}

		if exit, _ := s.Execute(ctx, line); exit {
			return nil
		}
	}
}

// RunScript executes one command per line without prompting. Blank lines and
// lines starting with # are skipped. It returns the number of commands that
// failed.
func (s *Shell) RunScript(ctx context.Context, in io.Reader) (int, error) {
	scanner := bufio.NewScanner(in)
	failures := 0

	for lineNo := 1; scanner.Scan(); lineNo++ {
		if err := ctx.Err(); err != nil {
			return failures, err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		exit, err := s.Execute(ctx, line)
		if err != nil {
			s.logger.WithField("line", lineNo).WithError(err).Debug("Script command failed")
			failures++
		}

		if exit {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return failures, fmt.Errorf("failed to read script: %w", err)
	}

	return failures, nil
}

// Execute runs a single line. exit reports that the user asked to leave; err
// is the failure of the command, which has already been reported.
func (s *Shell) Execute(ctx context.Context, line string) (exit bool, err error) {
	cmd, err := Parse(line)
	if err != nil {
		s.reporter.Failure("parse", err)
		return false, err
	}

	switch cmd.Name {
	case "":
		return false, nil
	case CmdExit:
		return true, nil
	case CmdHelp:
		fmt.Fprintln(s.out, helpText)
		return false, nil
	case CmdCache:
		return false, s.cacheCommand(cmd)
	}

	res := s.dispatch(ctx, cmd)
	if res.Err != nil || res.Cancelled {
		return false, res.Err
	}

	return false, s.render(cmd, res)
}

func (s *Shell) dispatch(ctx context.Context, cmd Command) engine.Result {
	switch cmd.Name {
	case CmdCreateTable:
		return s.session.CreateTable(ctx, cmd.Table, cmd.Columns)
	case CmdDropTable:
		return s.session.DropTable(ctx, cmd.Table)
	case CmdListTables:
		return s.session.ListTables(ctx)
	case CmdInsert:
		return s.session.InsertRow(ctx, cmd.Table, cmd.Values)
	case CmdSelect:
		return s.session.SelectRows(ctx, cmd.Table, cmd.Where)
	case CmdUpdate:
		return s.session.UpdateRows(ctx, cmd.Table, cmd.Set, cmd.Where)
	case CmdDelete:
		return s.session.DeleteRows(ctx, cmd.Table, cmd.Where)
	case CmdInfo:
		return s.session.TableInfo(ctx, cmd.Table)
	default:
		return engine.Result{}
	}
}

func (s *Shell) render(cmd Command, res engine.Result) error {
	switch cmd.Name {
	case CmdCreateTable:
		columns := make([]string, len(res.Schema.Columns))
		for i, col := range res.Schema.Columns {
			columns[i] = col.String()
		}

		_, err := fmt.Fprintf(s.out, "Table %q created with columns: %s\n", res.Table, strings.Join(columns, ", "))

		return err
	case CmdDropTable:
		_, err := fmt.Fprintf(s.out, "Table %q dropped.\n", res.Table)
		return err
	case CmdListTables:
		return s.formatter.RenderTables(s.out, res.Tables)
	case CmdInsert:
		_, err := fmt.Fprintf(s.out, "Row with ID=%d inserted into %q.\n", res.ID, res.Table)
		return err
	case CmdSelect:
		return s.formatter.RenderRows(s.out, res.Schema, res.Rows)
	case CmdUpdate:
		_, err := fmt.Fprintf(s.out, "Updated %d row(s) in %q.\n", res.Affected, res.Table)
		return err
	case CmdDelete:
		_, err := fmt.Fprintf(s.out, "Deleted %d row(s) from %q.\n", res.Affected, res.Table)
		return err
	case CmdInfo:
		return s.formatter.RenderInfo(s.out, res.Schema, res.RowCount)
	default:
		return nil
	}
}

func (s *Shell) cacheCommand(cmd Command) error {
	c := s.session.Cache()

	if len(cmd.Args) > 0 {
		if !strings.EqualFold(cmd.Args[0], "clear") || len(cmd.Args) > 1 {
			err := usage(CmdCache, "cache [clear]")
			s.reporter.Failure(CmdCache, err)

			return err
		}

		c.Clear()

		_, err := fmt.Fprintln(s.out, "Cache cleared.")

		return err
	}

	return s.formatter.RenderCacheStats(s.out, c.GetStats(), c.Enabled())
}
