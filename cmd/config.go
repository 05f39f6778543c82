package cmd

import (
	"context"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/kyleking/primitive-db/internal/config"
	"github.com/kyleking/primitive-db/internal/errors"
)

func configCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file, environment variables, and command-line flags.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the configuration as JSON"},
		},
		Action: a.withConfig(func(ctx context.Context, cmd *cli.Command) error {
			return runConfig(getConfigFromContext(ctx), a.out, cmd.Bool("json"))
		}),
	}
}

func runConfig(cfg *config.Config, out io.Writer, asJSON bool) error {
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	if asJSON {
		jsonData, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}

		_, err = fmt.Fprintln(out, string(jsonData))

		return err
	}

	fmt.Fprintln(out, "====================")
	fmt.Fprintln(out, "Active Configuration:")
	fmt.Fprintf(out, "  File: %s\n", config.ConfigPath())

	fmt.Fprintln(out, "\nStorage:")
	fmt.Fprintf(out, "  Backend: %s\n", cfg.Storage.Backend)
	fmt.Fprintf(out, "  Directory: %s\n", cfg.Storage.Directory)

	if cfg.Storage.Backend == "duckdb" {
		fmt.Fprintf(out, "  DuckDB File: %s\n", cfg.DuckDBFile())
	} else {
		fmt.Fprintf(out, "  Meta File: %s\n", cfg.Storage.MetaFile)
		fmt.Fprintf(out, "  Data Dir: %s\n", cfg.Storage.DataDir)
		fmt.Fprintf(out, "  Format: %s\n", cfg.Storage.Format)
	}

	fmt.Fprintln(out, "\nCache:")
	fmt.Fprintf(out, "  Enabled: %t\n", cfg.Cache.Enabled)
	fmt.Fprintf(out, "  Scope: %s\n", cfg.Cache.Scope)

	fmt.Fprintln(out, "\nSession:")
	fmt.Fprintf(out, "  Auto Confirm: %t\n", cfg.Session.AutoConfirm)
	fmt.Fprintf(out, "  Show Timing: %t\n", cfg.Session.ShowTiming)
	fmt.Fprintf(out, "  Prompt: %q\n", cfg.Session.Prompt)

	fmt.Fprintln(out, "\nLogging:")
	fmt.Fprintf(out, "  Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(out, "  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Fprintf(out, "  File: %s\n", cfg.Logging.File)
	}

	fmt.Fprintln(out, "\nDebug:")
	fmt.Fprintf(out, "  Enabled: %t\n", cfg.Debug.Enabled)
	fmt.Fprintf(out, "  Verbose: %t\n", cfg.Debug.Verbose)

	return nil
}
