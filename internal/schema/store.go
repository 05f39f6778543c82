// Package schema holds the catalog of table definitions.
package schema

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/types"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store maps table names to their schemas
type Store struct {
	tables map[string]types.TableSchema
}

// NewStore creates an empty catalog
func NewStore() *Store {
	return &Store{tables: make(map[string]types.TableSchema)}
}

// ValidateName checks that a table or column name is a plain identifier
func ValidateName(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return errors.NewSchemaError("invalid %s name %q", kind, name).
			WithSuggestion("Names must start with a letter or underscore and contain only letters, digits, and underscores")
	}

	return nil
}

// ParseColumnSpecs turns name:type tokens into column definitions, prepending
// the implicit ID column.
func ParseColumnSpecs(specs []string) ([]types.ColumnDef, error) {
	columns := []types.ColumnDef{{Name: types.IDColumn, Type: types.Int}}
	seen := map[string]bool{types.IDColumn: true}

	for _, spec := range specs {
		name, typeName, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, errors.NewSyntaxError("invalid column definition %q (expected name:type)", spec)
		}

		name = strings.TrimSpace(name)
		if err := ValidateName("column", name); err != nil {
			return nil, err
		}

		if name == types.IDColumn {
			return nil, errors.NewSchemaError("column %q is reserved", types.IDColumn)
		}

		if seen[name] {
			return nil, errors.NewSchemaError("duplicate column %q", name)
		}

		colType, err := types.ParseColumnType(typeName)
		if err != nil {
			return nil, err
		}

		seen[name] = true
		columns = append(columns, types.ColumnDef{Name: name, Type: colType})
	}

	return columns, nil
}

// Create adds a new table built from name:type specs
func (s *Store) Create(name string, specs []string) (types.TableSchema, error) {
	if err := ValidateName("table", name); err != nil {
		return types.TableSchema{}, err
	}

	if _, exists := s.tables[name]; exists {
		return types.TableSchema{}, errors.NewTableExistsError(name)
	}

	columns, err := ParseColumnSpecs(specs)
	if err != nil {
		return types.TableSchema{}, err
	}

	table := types.TableSchema{Name: name, Columns: columns}
	s.tables[name] = table

	return table.Clone(), nil
}

// Drop removes a table definition
func (s *Store) Drop(name string) error {
	if _, exists := s.tables[name]; !exists {
		return errors.NewTableNotFoundError(name)
	}

	delete(s.tables, name)

	return nil
}

// Get returns a copy of a table schema
func (s *Store) Get(name string) (types.TableSchema, error) {
	table, ok := s.tables[name]
	if !ok {
		return types.TableSchema{}, errors.NewTableNotFoundError(name)
	}

	return table.Clone(), nil
}

// Has reports whether a table exists
func (s *Store) Has(name string) bool {
	_, ok := s.tables[name]
	return ok
}

// SetLastID records the ID high-water mark of a table
func (s *Store) SetLastID(name string, id int64) error {
	table, ok := s.tables[name]
	if !ok {
		return errors.NewTableNotFoundError(name)
	}

	if id > table.LastID {
		table.LastID = id
		s.tables[name] = table
	}

	return nil
}

// Names returns the table names sorted alphabetically
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of tables
func (s *Store) Len() int {
	return len(s.tables)
}

// Clone returns an independent copy of the catalog
func (s *Store) Clone() *Store {
	out := NewStore()
	for name, table := range s.tables {
		out.tables[name] = table.Clone()
	}

	return out
}

// Tables returns copies of all schemas in name order
func (s *Store) Tables() []types.TableSchema {
	out := make([]types.TableSchema, 0, len(s.tables))
	for _, name := range s.Names() {
		out = append(out, s.tables[name].Clone())
	}

	return out
}

// Put inserts or replaces a schema after validating it
func (s *Store) Put(table types.TableSchema) error {
	if err := Validate(table); err != nil {
		return err
	}

	s.tables[table.Name] = table.Clone()

	return nil
}

// Validate checks the structural invariants of a schema
func Validate(table types.TableSchema) error {
	if err := ValidateName("table", table.Name); err != nil {
		return err
	}

	if len(table.Columns) == 0 || table.Columns[0].Name != types.IDColumn || table.Columns[0].Type != types.Int {
		return errors.NewSchemaError("table %q must start with column ID:int", table.Name)
	}

	seen := make(map[string]bool, len(table.Columns))
	for _, col := range table.Columns {
		if err := ValidateName("column", col.Name); err != nil {
			return err
		}

		if seen[col.Name] {
			return errors.NewSchemaError("duplicate column %q in table %q", col.Name, table.Name)
		}

		if _, err := col.Type.MarshalText(); err != nil {
			return err
		}

		seen[col.Name] = true
	}

	return nil
}
