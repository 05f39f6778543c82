package storage

import (
	"context"
	"time"

	"github.com/kyleking/primitive-db/internal/schema"
	"github.com/kyleking/primitive-db/internal/types"
)

// Repository defines the persistence operations used by the engine. Rows are
// loaded with the schema they must satisfy and saved with the schema that
// fixes their column order.
type Repository interface {
	LoadSchema(ctx context.Context) (*schema.Store, error)
	SaveSchema(ctx context.Context, store *schema.Store) error
	LoadRows(ctx context.Context, table types.TableSchema) ([]types.Row, error)
	SaveRows(ctx context.Context, table types.TableSchema, rows []types.Row) error
	DeleteRows(ctx context.Context, table string) error
	Close() error
}

// Stats summarizes what a repository holds. SchemaVersion and LastModified
// are only known for backends that track them.
type Stats struct {
	Backend       string    `json:"backend"`
	Tables        int       `json:"tables"`
	Rows          int       `json:"rows"`
	SchemaVersion int       `json:"schema_version,omitempty"`
	LastModified  time.Time `json:"last_modified,omitempty"`
}

// versioned is implemented by repositories with a migrated schema
type versioned interface {
	SchemaVersion(ctx context.Context) (int, error)
	LastModified(ctx context.Context) (time.Time, error)
}

// GetStats loads every table and counts its rows
func GetStats(ctx context.Context, repo Repository, backend string) (*Stats, error) {
	store, err := repo.LoadSchema(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Backend: backend, Tables: store.Len()}

	for _, table := range store.Tables() {
		rows, err := repo.LoadRows(ctx, table)
		if err != nil {
			return nil, err
		}

		stats.Rows += len(rows)
	}

	if v, ok := repo.(versioned); ok {
		if stats.SchemaVersion, err = v.SchemaVersion(ctx); err != nil {
			return nil, err
		}

		if stats.LastModified, err = v.LastModified(ctx); err != nil {
			return nil, err
		}
	}

	return stats, nil
}
