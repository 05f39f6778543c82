// Package engine runs the command language against a repository. Every entry
// point loads the schema and rows it needs, applies the executor, saves the
// outcome and keeps the result cache coherent.
//
// Failures never escape an entry point: they are reported once through the
// session's Reporter and turned into a Result carrying the unchanged state.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kyleking/primitive-db/internal/cache"
	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/executor"
	"github.com/kyleking/primitive-db/internal/logging"
	"github.com/kyleking/primitive-db/internal/policy"
	"github.com/kyleking/primitive-db/internal/query"
	"github.com/kyleking/primitive-db/internal/schema"
	"github.com/kyleking/primitive-db/internal/storage"
	"github.com/kyleking/primitive-db/internal/types"
)

// Operation names, as they appear in diagnostics and timing lines
const (
	OpCreateTable = "create_table"
	OpDropTable   = "drop_table"
	OpListTables  = "list_tables"
	OpInsert      = "insert"
	OpSelect      = "select"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpInfo        = "info"
)

// Result is what an entry point hands back to the front-end
type Result struct {
	Op     string
	Table  string
	Schema types.TableSchema
	// Rows holds the selected rows for select, and the table's rows after the
	// command for insert, update and delete
	Rows     []types.Row
	Tables   []string
	Affected int
	ID       int64
	RowCount int
	// Cached is set when a select was answered from the result cache
	Cached bool
	// Applied is set when the command changed stored state
	Applied   bool
	Cancelled bool
	// Err is the contained failure, already reported
	Err error
}

// Failed reports whether the command was stopped by an error
func (r Result) Failed() bool {
	return r.Err != nil
}

// Session is one interpreter session over a repository
type Session struct {
	ID string

	repo      storage.Repository
	cache     *cache.ResultCache
	confirmer policy.Confirmer
	reporter  policy.Reporter
	logger    *logging.Logger
	timing    bool
	now       func() time.Time
}

// Option configures a Session
type Option func(*Session)

// WithConfirmer sets who approves drop_table and delete
func WithConfirmer(c policy.Confirmer) Option {
	return func(s *Session) {
		if c != nil {
			s.confirmer = c
		}
	}
}

// WithAutoConfirm approves every destructive command without asking
func WithAutoConfirm(enabled bool) Option {
	return func(s *Session) {
		if enabled {
			s.confirmer = AutoConfirmer{}
		}
	}
}

// WithReporter sets where diagnostics go
func WithReporter(r policy.Reporter) Option {
	return func(s *Session) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithLogger sets the session logger
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTiming turns the insert/select timing lines on or off
func WithTiming(enabled bool) Option {
	return func(s *Session) {
		s.timing = enabled
	}
}

// WithClock replaces time.Now for timing
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a session. A nil cache gets a fresh per-table cache.
func New(repo storage.Repository, resultCache *cache.ResultCache, opts ...Option) *Session {
	if resultCache == nil {
		resultCache = cache.NewResultCache()
	}

	s := &Session{
		ID:        uuid.NewString(),
		repo:      repo,
		cache:     resultCache,
		confirmer: AutoConfirmer{},
		reporter:  discardReporter{},
		logger:    logging.GetLogger(),
		timing:    true,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.WithField("session", s.ID)
	s.reporter = loggingReporter{next: s.reporter, logger: s.logger}

	return s
}

// Cache returns the session's result cache
func (s *Session) Cache() *cache.ResultCache {
	return s.cache
}

// Close releases the repository
func (s *Session) Close() error {
	return s.repo.Close()
}

// CreateTable adds a table with the given name:type column specs
func (s *Session) CreateTable(ctx context.Context, name string, columns []string) Result {
	s.trace(OpCreateTable, name)

	fn := func(ctx context.Context) (Result, error) {
		store, err := s.repo.LoadSchema(ctx)
		if err != nil {
			return Result{}, err
		}

		table, err := store.Create(name, columns)
		if err != nil {
			return Result{}, err
		}

		// clear rows left behind by an interrupted drop
		if err := s.repo.DeleteRows(ctx, name); err != nil {
			return Result{}, err
		}

		if err := s.repo.SaveSchema(ctx, store); err != nil {
			return Result{}, err
		}

		s.cache.InvalidateTable(name)

		return Result{Op: OpCreateTable, Table: name, Schema: table, Applied: true}, nil
	}

	return s.run(ctx, OpCreateTable, name, fn)
}

// DropTable removes a table and its rows after confirmation
func (s *Session) DropTable(ctx context.Context, name string) Result {
	s.trace(OpDropTable, name)

	prepared := s.run(ctx, OpDropTable, name, func(ctx context.Context) (Result, error) {
		store, err := s.repo.LoadSchema(ctx)
		if err != nil {
			return Result{}, err
		}

		table, err := store.Get(name)
		if err != nil {
			return Result{}, err
		}

		return Result{Op: OpDropTable, Table: name, Schema: table}, nil
	})
	if prepared.Failed() {
		return prepared
	}

	fn := func(ctx context.Context) (Result, error) {
		store, err := s.repo.LoadSchema(ctx)
		if err != nil {
			return Result{}, err
		}

		if err := store.Drop(name); err != nil {
			return Result{}, err
		}

		// rows are removed before the catalog entry
		err = s.repo.DeleteRows(ctx, name)
		s.cache.InvalidateTable(name)

		if err != nil {
			return Result{}, err
		}

		if err := s.repo.SaveSchema(ctx, store); err != nil {
			return Result{}, err
		}

		return Result{Op: OpDropTable, Table: name, Schema: prepared.Schema, Applied: true}, nil
	}

	return s.runConfirmed(ctx, OpDropTable, fmt.Sprintf("drop table %s", name), prepared, fn)
}

// ListTables returns the table names in sorted order
func (s *Session) ListTables(ctx context.Context) Result {
	s.trace(OpListTables, "")

	return s.run(ctx, OpListTables, "", func(ctx context.Context) (Result, error) {
		store, err := s.repo.LoadSchema(ctx)
		if err != nil {
			return Result{}, err
		}

		return Result{Op: OpListTables, Tables: store.Names()}, nil
	})
}

// InsertRow appends a row built from raw literals, one per non-ID column
func (s *Session) InsertRow(ctx context.Context, name string, values []string) Result {
	s.trace(OpInsert, name)

	fn := func(ctx context.Context) (Result, error) {
		store, table, rows, err := s.loadTable(ctx, name)
		if err != nil {
			return Result{Rows: rows}, err
		}

		updated, id, err := executor.Insert(table, rows, values)
		if err != nil {
			return Result{Rows: rows}, err
		}

		if err := store.SetLastID(name, id); err != nil {
			return Result{Rows: rows}, err
		}

		// LastID is persisted before the row
		if err := s.repo.SaveSchema(ctx, store); err != nil {
			return Result{Rows: rows}, err
		}

		err = s.repo.SaveRows(ctx, table, updated)
		s.cache.InvalidateTable(name)

		if err != nil {
			return Result{Rows: rows}, err
		}

		return Result{Op: OpInsert, Table: name, Schema: table, Rows: updated, ID: id, Affected: 1, Applied: true}, nil
	}

	return s.run(ctx, OpInsert, name, fn, s.timed(OpInsert)...)
}

// SelectRows returns the rows matching where. Empty where selects every row.
// Results are served from the cache when possible.
func (s *Session) SelectRows(ctx context.Context, name, where string) Result {
	s.trace(OpSelect, name)

	fn := func(ctx context.Context) (Result, error) {
		store, err := s.repo.LoadSchema(ctx)
		if err != nil {
			return Result{}, err
		}

		table, err := store.Get(name)
		if err != nil {
			return Result{}, err
		}

		pred, err := parseOptionalWhere(where, table)
		if err != nil {
			return Result{}, err
		}

		rows, hit, err := s.cache.GetOrCompute(ctx, name, pred, func(ctx context.Context) ([]types.Row, error) {
			all, err := s.repo.LoadRows(ctx, table)
			if err != nil {
				return nil, err
			}

			return executor.Select(all, pred), nil
		})
		if err != nil {
			return Result{}, err
		}

		if hit {
			s.logger.WithField("table", name).Debug("Select served from cache")
		}

		return Result{Op: OpSelect, Table: name, Schema: table, Rows: rows, RowCount: len(rows), Cached: hit}, nil
	}

	return s.run(ctx, OpSelect, name, fn, s.timed(OpSelect)...)
}

// UpdateRows applies set to the rows matching where. where is required.
func (s *Session) UpdateRows(ctx context.Context, name, set, where string) Result {
	s.trace(OpUpdate, name)

	fn := func(ctx context.Context) (Result, error) {
		_, table, rows, err := s.loadTable(ctx, name)
		if err != nil {
			return Result{Rows: rows}, err
		}

		assignment, err := query.ParseSet(set, table)
		if err != nil {
			return Result{Rows: rows}, err
		}

		pred, err := parseRequiredWhere(OpUpdate, where, table)
		if err != nil {
			return Result{Rows: rows}, err
		}

		updated, count := executor.Update(rows, assignment, pred)
		if count == 0 {
			return Result{Op: OpUpdate, Table: name, Schema: table, Rows: rows}, nil
		}

		err = s.repo.SaveRows(ctx, table, updated)
		s.cache.InvalidateTable(name)

		if err != nil {
			return Result{Rows: rows}, err
		}

		return Result{Op: OpUpdate, Table: name, Schema: table, Rows: updated, Affected: count, Applied: true}, nil
	}

	return s.run(ctx, OpUpdate, name, fn)
}

// DeleteRows removes the rows matching where after confirmation. where is
// required.
func (s *Session) DeleteRows(ctx context.Context, name, where string) Result {
	s.trace(OpDelete, name)

	var pred types.Predicate

	prepared := s.run(ctx, OpDelete, name, func(ctx context.Context) (Result, error) {
		_, table, rows, err := s.loadTable(ctx, name)
		if err != nil {
			return Result{Rows: rows}, err
		}

		pred, err = parseRequiredWhere(OpDelete, where, table)
		if err != nil {
			return Result{Rows: rows}, err
		}

		return Result{Op: OpDelete, Table: name, Schema: table, Rows: rows}, nil
	})
	if prepared.Failed() {
		return prepared
	}

	fn := func(ctx context.Context) (Result, error) {
		kept, count := executor.Delete(prepared.Rows, pred)
		if count == 0 {
			return Result{Op: OpDelete, Table: name, Schema: prepared.Schema, Rows: prepared.Rows}, nil
		}

		err := s.repo.SaveRows(ctx, prepared.Schema, kept)
		s.cache.InvalidateTable(name)

		if err != nil {
			return Result{}, err
		}

		return Result{Op: OpDelete, Table: name, Schema: prepared.Schema, Rows: kept, Affected: count, Applied: true}, nil
	}

	return s.runConfirmed(ctx, OpDelete, fmt.Sprintf("delete from %s where %s", name, strings.TrimSpace(where)), prepared, fn)
}

// TableInfo returns a table's schema and row count
func (s *Session) TableInfo(ctx context.Context, name string) Result {
	s.trace(OpInfo, name)

	return s.run(ctx, OpInfo, name, func(ctx context.Context) (Result, error) {
		_, table, rows, err := s.loadTable(ctx, name)
		if err != nil {
			return Result{}, err
		}

		return Result{Op: OpInfo, Table: name, Schema: table, RowCount: len(rows)}, nil
	})
}

// run wraps fn in containment plus any extra policies. The fallback keeps
// whatever rows fn returned alongside its error.
func (s *Session) run(ctx context.Context, op, table string, fn policy.Func[Result], extra ...policy.Policy[Result]) Result {
	var partial Result

	inner := func(ctx context.Context) (Result, error) {
		result, err := fn(ctx)
		if err != nil {
			partial = result
		}

		return result, err
	}

	policies := append([]policy.Policy[Result]{
		policy.Contain(s.reporter, op, func(err error) Result {
			return Result{Op: op, Table: table, Rows: partial.Rows, Err: err}
		}),
	}, extra...)

	result, _ := policy.Chain(inner, policies...)(ctx)

	return result
}

// runConfirmed wraps fn in Confirm, Contain and timing. Declining or failing
// hands back the prepared state unchanged.
func (s *Session) runConfirmed(ctx context.Context, op, action string, prepared Result, fn policy.Func[Result]) Result {
	unchanged := func() Result {
		return Result{Op: op, Table: prepared.Table, Schema: prepared.Schema, Rows: prepared.Rows}
	}

	policies := []policy.Policy[Result]{
		policy.Confirm(s.confirmer, s.reporter, op, action, func() Result {
			r := unchanged()
			r.Cancelled = true

			return r
		}),
		policy.Contain(s.reporter, op, func(err error) Result {
			r := unchanged()
			r.Err = err

			return r
		}),
	}

	result, _ := policy.Chain(fn, policies...)(ctx)

	return result
}

func (s *Session) timed(op string) []policy.Policy[Result] {
	if !s.timing {
		return nil
	}

	return []policy.Policy[Result]{policy.Timed[Result](s.reporter, op, s.now)}
}

// loadTable loads the catalog, one table's schema and its rows
func (s *Session) loadTable(ctx context.Context, name string) (*schema.Store, types.TableSchema, []types.Row, error) {
	store, err := s.repo.LoadSchema(ctx)
	if err != nil {
		return nil, types.TableSchema{}, nil, err
	}

	table, err := store.Get(name)
	if err != nil {
		return nil, types.TableSchema{}, nil, err
	}

	rows, err := s.repo.LoadRows(ctx, table)
	if err != nil {
		return nil, types.TableSchema{}, nil, err
	}

	return store, table, rows, nil
}

func (s *Session) trace(op, table string) {
	s.logger.WithFields(map[string]interface{}{
		"op":    op,
		"table": table,
	}).Debug("Running command")
}

func parseOptionalWhere(where string, table types.TableSchema) (types.Predicate, error) {
	if strings.TrimSpace(where) == "" {
		return nil, nil
	}

	return query.ParseWhere(where, table)
}

func parseRequiredWhere(op, where string, table types.TableSchema) (types.Predicate, error) {
	if strings.TrimSpace(where) == "" {
		return nil, errors.NewSyntaxError("%s requires a WHERE clause", op).
			WithSuggestion("Use '" + op + " ... where <column>=<value>'")
	}

	return query.ParseWhere(where, table)
}
