package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/logging"
	"github.com/kyleking/primitive-db/internal/storage"
)

func migrateCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Show or roll back the DuckDB schema migrations",
		Description: `Opening a DuckDB database applies every pending migration. Without flags
this command lists each migration and when it was applied.

  primitive-db --backend duckdb migrate --down 1

rolls the schema back to version 1, for use with an older release. The next
command that opens the database migrates it up again.`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "down", Value: -1, Usage: "roll back to this schema version"},
		},
		Action: a.withConfig(func(ctx context.Context, cmd *cli.Command) error {
			cfg := getConfigFromContext(ctx)

			if !strings.EqualFold(cfg.Storage.Backend, "duckdb") {
				return errors.NewConfigError("migrations apply only to the duckdb backend", "storage.backend")
			}

			return logging.LoggerMiddleware("migrate", func() error {
				repo, err := storage.NewDuckDBRepository(cfg.DuckDBFile())
				if err != nil {
					return fmt.Errorf("failed to initialize storage: %w", err)
				}
				defer repo.Close()

				if err := repo.Initialize(ctx); err != nil {
					return fmt.Errorf("failed to initialize database: %w", err)
				}

				return runMigrate(ctx, a.out, repo.Migrations(), int(cmd.Int("down")))
			})
		}),
	}
}

// runMigrate rolls back to target when it is not negative, then prints the
// status of every migration
func runMigrate(ctx context.Context, out io.Writer, manager *storage.MigrationManager, target int) error {
	if target >= 0 {
		if err := manager.MigrateDown(ctx, target); err != nil {
			return err
		}
	}

	status, err := manager.SortedStatus(ctx)
	if err != nil {
		return err
	}

	version, err := manager.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Schema Version: %d\n\n", version)

	for _, s := range status {
		applied := "pending"
		if s.Applied {
			applied = "applied " + s.AppliedAt.Local().Format(time.RFC3339)
		}

		fmt.Fprintf(out, "  %3d  %-28s %s\n", s.Version, s.Description, applied)
	}

	return nil
}
