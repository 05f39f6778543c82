package types

import (
	"strings"

	"github.com/kyleking/primitive-db/internal/errors"
)

// IDColumn is the implicit first column of every table
const IDColumn = "ID"

// ColumnType is the declared type of a column
type ColumnType int

const (
	Int ColumnType = iota
	Str
	Bool
)

// String returns the name used in the command language and in metadata
func (t ColumnType) String() string {
	switch t {
	case Int:
		return "int"
	case Str:
		return "str"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseColumnType parses a type name (int, str, bool)
func ParseColumnType(name string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int":
		return Int, nil
	case "str":
		return Str, nil
	case "bool":
		return Bool, nil
	default:
		return 0, errors.NewSchemaError("unsupported column type %q (must be int, str, or bool)", name)
	}
}

// MarshalText stores the type by name in metadata files
func (t ColumnType) MarshalText() ([]byte, error) {
	if t < Int || t > Bool {
		return nil, errors.NewSchemaError("unsupported column type %d", int(t))
	}

	return []byte(t.String()), nil
}

// UnmarshalText parses a type name from metadata files
func (t *ColumnType) UnmarshalText(text []byte) error {
	parsed, err := ParseColumnType(string(text))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// ColumnDef describes a single column
type ColumnDef struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// String renders the column as name:type
func (c ColumnDef) String() string {
	return c.Name + ":" + c.Type.String()
}

// TableSchema is the ordered column list of a table. Columns[0] is always ID:int.
type TableSchema struct {
	Name    string      `json:"name"`
	Columns []ColumnDef `json:"columns"`
	// LastID is the highest ID ever assigned in this table
	LastID int64 `json:"last_id"`
}

// Column looks up a column definition by name
func (s TableSchema) Column(name string) (ColumnDef, bool) {
	for _, col := range s.Columns {
		if col.Name == name {
			return col, true
		}
	}

	return ColumnDef{}, false
}

// DataColumns returns every column except ID, in declaration order
func (s TableSchema) DataColumns() []ColumnDef {
	out := make([]ColumnDef, 0, len(s.Columns))
	for _, col := range s.Columns {
		if col.Name != IDColumn {
			out = append(out, col)
		}
	}

	return out
}

// ColumnNames returns the column names in declaration order
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}

	return names
}

// Clone returns a deep copy of the schema
func (s TableSchema) Clone() TableSchema {
	cols := make([]ColumnDef, len(s.Columns))
	copy(cols, s.Columns)
	s.Columns = cols

	return s
}
