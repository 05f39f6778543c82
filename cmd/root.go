package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/primitive-db/internal/config"
	"github.com/kyleking/primitive-db/internal/formatter"
	"github.com/kyleking/primitive-db/internal/logging"
)

type contextKey string

const configKey contextKey = "config"

// app carries the streams every command reads from and writes to
type app struct {
	in        io.Reader
	out       io.Writer
	formatter *formatter.Formatter
}

// Execute runs the CLI with the process arguments and standard streams
func Execute() error {
	root := NewRootCommand(os.Stdin, os.Stdout, formatter.FromTerminal(term.FromEnv()))
	return root.Run(context.Background(), os.Args)
}

// NewRootCommand builds the primitive-db command tree. Without a subcommand
// it starts the interactive shell.
func NewRootCommand(in io.Reader, out io.Writer, f *formatter.Formatter) *cli.Command {
	if f == nil {
		f = formatter.NewFormatter()
	}

	a := &app{in: in, out: out, formatter: f}

	return &cli.Command{
		Name:  "primitive-db",
		Usage: "A tiny file-backed table database with an interactive shell",
		Description: `primitive-db stores tables of int, str and bool columns in a directory
of JSON (or BSON) files, or in a DuckDB database, and edits them through a
small command language: create_table, insert, select, update, delete and more.

Run without a subcommand to start the interactive shell.`,
		Writer: out,
		Flags:  globalFlags(),
		Action: a.withConfig(a.runShell),
		Commands: []*cli.Command{
			execCommand(a),
			runCommand(a),
			configCommand(a),
			statsCommand(a),
			migrateCommand(a),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "path to the JSON configuration file"},
		&cli.StringFlag{Name: "db-dir", Aliases: []string{"d"}, Usage: "database directory"},
		&cli.StringFlag{Name: "backend", Usage: "storage backend (file, duckdb)"},
		&cli.StringFlag{Name: "format", Usage: "table file format for the file backend (json, bson)"},
		&cli.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)"},
		&cli.StringFlag{Name: "cache-scope", Usage: "what a mutation invalidates in the result cache (table, all)"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "approve drop_table and delete without asking"},
		&cli.BoolFlag{Name: "no-cache", Usage: "disable the select result cache"},
		&cli.BoolFlag{Name: "no-timing", Usage: "hide the insert/select timing lines"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log informational messages"},
		&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
	}
}

// flagOverrides collects the flags the user actually set
func flagOverrides(cmd *cli.Command) map[string]interface{} {
	overrides := make(map[string]interface{})

	for _, name := range []string{"config", "db-dir", "backend", "format", "log-level", "cache-scope"} {
		if cmd.IsSet(name) {
			overrides[name] = cmd.String(name)
		}
	}

	for _, name := range []string{"yes", "no-cache", "no-timing", "verbose", "debug"} {
		if cmd.IsSet(name) {
			overrides[name] = cmd.Bool(name)
		}
	}

	return overrides
}

// loadConfig resolves the configuration for cmd and installs the global
// logger it describes
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfigWithOverrides(flagOverrides(cmd))
	if err != nil {
		return nil, err
	}

	cfg.ExpandAllPaths()

	if cfg.Debug.Verbose && cfg.Logging.Level != "debug" {
		cfg.Logging.Level = "info"
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// withConfig loads the configuration before the action runs and makes it
// available through getConfigFromContext
func (a *app) withConfig(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return action(withConfigContext(ctx, cfg), cmd)
	}
}

func withConfigContext(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}

	return nil
}
