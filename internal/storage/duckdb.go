package storage

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/schema"
	"github.com/kyleking/primitive-db/internal/types"
)

// DuckDBRepository implements the Repository interface using DuckDB. The
// catalog holds one JSON definition per table and every row is a JSON payload
// ordered by its position in the table.
type DuckDBRepository struct {
	db   *sql.DB
	path string
}

// NewDuckDBRepository opens (or creates) a DuckDB file. An empty path opens
// an in-memory database.
func NewDuckDBRepository(dbPath string) (*DuckDBRepository, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives in a single connection
	if dbPath == "" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DuckDBRepository{db: db, path: dbPath}, nil
}

// Initialize creates the database schema using migrations
func (r *DuckDBRepository) Initialize(ctx context.Context) error {
	return NewMigrationManager(r.db).MigrateUp(ctx)
}

// LoadSchema reads every catalog entry
func (r *DuckDBRepository) LoadSchema(ctx context.Context) (*schema.Store, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT table_name, definition FROM catalog")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to query catalog")
	}

	defer rows.Close()

	entries := make(map[string][]byte)

	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to scan catalog entry")
		}

		entries[name] = []byte(definition)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to read catalog")
	}

	return schema.DecodeEntries(entries)
}

// SaveSchema replaces the catalog in one transaction
func (r *DuckDBRepository) SaveSchema(ctx context.Context, store *schema.Store) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM catalog"); err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to clear catalog")
	}

	for _, table := range store.Tables() {
		definition, err := schema.EncodeEntry(table)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO catalog (table_name, definition, updated_at) VALUES (?, ?, ?)",
			table.Name, string(definition), time.Now().UTC())
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeStorage, "failed to store table %q", table.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to commit catalog")
	}

	return nil
}

// LoadRows reads the rows of a table in position order
func (r *DuckDBRepository) LoadRows(ctx context.Context, table types.TableSchema) ([]types.Row, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT payload FROM table_rows WHERE table_name = ? ORDER BY position", table.Name)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to query rows of table %q", table.Name)
	}

	defer rows.Close()

	var records []map[string]interface{}

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to scan row of table %q", table.Name)
		}

		record, err := decodePayload(payload)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeStorage, "invalid row payload in table %q", table.Name)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to read rows of table %q", table.Name)
	}

	return rowsFromRecords(records, table)
}

// SaveRows replaces the rows of a table in one transaction
func (r *DuckDBRepository) SaveRows(ctx context.Context, table types.TableSchema, rows []types.Row) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM table_rows WHERE table_name = ?", table.Name); err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to clear rows of table %q", table.Name)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO table_rows (table_name, position, payload) VALUES (?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to prepare row insert")
	}

	defer stmt.Close()

	for i, row := range rows {
		payload, err := orderedRow{columns: table.Columns, row: row}.MarshalJSON()
		if err != nil {
			return errors.Wrapf(err, errors.ErrTypeStorage, "failed to encode row %d of table %q", i, table.Name)
		}

		if _, err := stmt.ExecContext(ctx, table.Name, i, string(payload)); err != nil {
			return errors.Wrapf(err, errors.ErrTypeStorage, "failed to store row %d of table %q", i, table.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to commit rows")
	}

	return nil
}

// DeleteRows removes every row of a table
func (r *DuckDBRepository) DeleteRows(ctx context.Context, table string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM table_rows WHERE table_name = ?", table); err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to delete rows of table %q", table)
	}

	return nil
}

// Migrations returns the migration manager for the open database
func (r *DuckDBRepository) Migrations() *MigrationManager {
	return NewMigrationManager(r.db)
}

// SchemaVersion returns the highest applied migration
func (r *DuckDBRepository) SchemaVersion(ctx context.Context) (int, error) {
	version, err := r.Migrations().CurrentVersion(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeStorage, "failed to read schema version")
	}

	return version, nil
}

// LastModified returns when the catalog was last written, or the zero time
// for an empty catalog or one that predates update tracking
func (r *DuckDBRepository) LastModified(ctx context.Context) (time.Time, error) {
	version, err := r.SchemaVersion(ctx)
	if err != nil {
		return time.Time{}, err
	}

	if version < catalogUpdateVersion {
		return time.Time{}, nil
	}

	var updated sql.NullTime
	if err := r.db.QueryRowContext(ctx, "SELECT max(updated_at) FROM catalog").Scan(&updated); err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrTypeStorage, "failed to read catalog update time")
	}

	return updated.Time, nil
}

// Close closes the database connection
func (r *DuckDBRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}

	return nil
}

func decodePayload(payload string) (map[string]interface{}, error) {
	var record map[string]interface{}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()

	if err := dec.Decode(&record); err != nil {
		return nil, err
	}

	return record, nil
}
