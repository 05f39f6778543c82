package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/primitive-db/internal/storage"
)

func statsCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:        "stats",
		Usage:       "Display database statistics",
		Description: `Show the storage backend, the number of tables and the total number of rows in the database.
The DuckDB backend also reports its schema version and when the catalog last changed.`,
		Action: a.withConfig(func(ctx context.Context, _ *cli.Command) error {
			cfg := getConfigFromContext(ctx)

			repo, err := storage.Open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer repo.Close()

			return runStatsWithStorage(ctx, a.out, repo, cfg.Storage.Backend)
		}),
	}
}

func runStatsWithStorage(ctx context.Context, out io.Writer, repo storage.Repository, backend string) error {
	stats, err := storage.GetStats(ctx, repo, backend)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	fmt.Fprintf(out, "Database Statistics\n")
	fmt.Fprintf(out, "==================\n\n")
	fmt.Fprintf(out, "Backend: %s\n", stats.Backend)
	fmt.Fprintf(out, "Tables: %d\n", stats.Tables)
	fmt.Fprintf(out, "Rows: %d\n", stats.Rows)

	if stats.SchemaVersion > 0 {
		fmt.Fprintf(out, "Schema Version: %d\n", stats.SchemaVersion)
	}

	if !stats.LastModified.IsZero() {
		fmt.Fprintf(out, "Last Modified: %s\n", stats.LastModified.Local().Format(time.RFC3339))
	}

	return nil
}
