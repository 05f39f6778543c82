package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/primitive-db/internal/cache"
	"github.com/kyleking/primitive-db/internal/config"
	"github.com/kyleking/primitive-db/internal/engine"
	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/logging"
	"github.com/kyleking/primitive-db/internal/shell"
	"github.com/kyleking/primitive-db/internal/storage"
)

func execCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "exec",
		Usage: "Run a single command and exit",
		Description: `Run one command line, for example:

  primitive-db exec 'select from users where age=30'

The exit status is non-zero when the command fails.`,
		ArgsUsage: " <command>",
		Action: a.withConfig(func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("expected a command to run")
			}

			return a.runExec(ctx, strings.Join(cmd.Args().Slice(), " "))
		}),
	}
}

func runCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the commands in a script file",
		Description: `Run a file of commands, one per line. Blank lines and lines starting
with # are skipped. Every command runs even when an earlier one fails; the
exit status is non-zero if any of them failed.`,
		ArgsUsage: " <script>",
		Action: a.withConfig(func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() != 1 {
				return fmt.Errorf("expected exactly 1 argument, got %d", args.Len())
			}

			return a.runScript(ctx, args.First())
		}),
	}
}

// runShell is the default action: the interactive loop on the app streams
func (a *app) runShell(ctx context.Context, _ *cli.Command) error {
	cfg := getConfigFromContext(ctx)
	in := bufio.NewReader(a.in)

	return logging.LoggerMiddleware("shell", func() error {
		sh, closeSession, err := a.openShell(ctx, cfg, in)
		if err != nil {
			return err
		}
		defer closeSession()

		return sh.Run(ctx, in)
	})
}

func (a *app) runExec(ctx context.Context, line string) error {
	cfg := getConfigFromContext(ctx)

	return logging.LoggerMiddleware("exec", func() error {
		sh, closeSession, err := a.openShell(ctx, cfg, bufio.NewReader(a.in))
		if err != nil {
			return err
		}
		defer closeSession()

		if _, err := sh.Execute(ctx, line); err != nil {
			return fmt.Errorf("command failed: %s", errors.Describe(err))
		}

		return nil
	})
}

func (a *app) runScript(ctx context.Context, path string) error {
	cfg := getConfigFromContext(ctx)

	return logging.LoggerMiddleware("run", func() error {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer file.Close()

		sh, closeSession, err := a.openShell(ctx, cfg, bufio.NewReader(a.in))
		if err != nil {
			return err
		}
		defer closeSession()

		failures, err := sh.RunScript(ctx, file)
		if err != nil {
			return err
		}

		if failures > 0 {
			return fmt.Errorf("%d command(s) in %s failed", failures, path)
		}

		return nil
	})
}

// openShell opens the configured storage and builds a session and shell
// around it. Confirmations are read from in, which must be the reader the
// shell takes its command lines from.
func (a *app) openShell(ctx context.Context, cfg *config.Config, in *bufio.Reader) (*shell.Shell, func(), error) {
	if cfg == nil {
		return nil, nil, errors.NewConfigError("configuration not loaded", "")
	}

	repo, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	reporter := shell.NewConsoleReporter(a.out)

	resultCache := cache.NewResultCache(
		cache.WithScope(cache.Scope(strings.ToLower(cfg.Cache.Scope))),
		cache.WithEnabled(cfg.Cache.Enabled),
	)

	session := engine.New(repo, resultCache,
		engine.WithConfirmer(shell.NewConsoleConfirmer(in, a.out)),
		engine.WithAutoConfirm(cfg.Session.AutoConfirm),
		engine.WithReporter(reporter),
		engine.WithTiming(cfg.Session.ShowTiming),
	)

	sh := shell.New(session, a.out,
		shell.WithFormatter(a.formatter),
		shell.WithPrompt(cfg.Session.Prompt),
		shell.WithReporter(reporter),
	)

	closeSession := func() {
		if err := session.Close(); err != nil {
			logging.ErrorWithErr("Failed to close storage", err)
		}
	}

	return sh, closeSession, nil
}
