package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kyleking/primitive-db/internal/types"
)

// NewTestDB creates a migrated DuckDB database in a temporary directory.
// Returns the repository and a cleanup function that should be deferred.
func NewTestDB(t *testing.T) (*DuckDBRepository, func()) {
	t.Helper()

	repo, err := NewDuckDBRepository(filepath.Join(t.TempDir(), "test.duckdb"))
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	if err := repo.Initialize(context.Background()); err != nil {
		repo.Close()
		t.Fatalf("failed to initialize test repository: %v", err)
	}

	cleanup := func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close test repository: %v", err)
		}
	}

	return repo, cleanup
}

// SeedTable creates a table in the repository catalog and stores its rows.
// The table's LastID follows the highest seeded ID.
func SeedTable(t *testing.T, repo Repository, name string, specs []string, rows []types.Row) types.TableSchema {
	t.Helper()

	ctx := context.Background()

	store, err := repo.LoadSchema(ctx)
	if err != nil {
		t.Fatalf("failed to load schema: %v", err)
	}

	table, err := store.Create(name, specs)
	if err != nil {
		t.Fatalf("failed to create table %s: %v", name, err)
	}

	for _, row := range rows {
		if err := store.SetLastID(name, row.ID()); err != nil {
			t.Fatalf("failed to record ID: %v", err)
		}
	}

	if err := repo.SaveSchema(ctx, store); err != nil {
		t.Fatalf("failed to save schema: %v", err)
	}

	if err := repo.SaveRows(ctx, table, rows); err != nil {
		t.Fatalf("failed to store rows of %s: %v", name, err)
	}

	table, _ = store.Get(name)

	return table
}
