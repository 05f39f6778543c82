package testutil

import (
	"strconv"

	"github.com/kyleking/primitive-db/internal/types"
)

// RowOption is a functional option for configuring test rows
type RowOption func(types.Row)

// WithStr sets a str column
func WithStr(column, value string) RowOption {
	return func(r types.Row) {
		r[column] = types.StrValue(value)
	}
}

// WithInt sets an int column
func WithInt(column string, value int64) RowOption {
	return func(r types.Row) {
		r[column] = types.IntValue(value)
	}
}

// WithBool sets a bool column
func WithBool(column string, value bool) RowOption {
	return func(r types.Row) {
		r[column] = types.BoolValue(value)
	}
}

// NewRow creates a row with the given ID and columns
func NewRow(id int64, opts ...RowOption) types.Row {
	row := types.Row{"ID": types.IntValue(id)}
	for _, opt := range opts {
		opt(row)
	}

	return row
}

// NewUser creates a row of UsersTable
func NewUser(id int64, name string, age int64, active bool) types.Row {
	return NewRow(id, WithStr("name", name), WithInt("age", age), WithBool("active", active))
}

// NewUsers creates n users named user1..userN, aged 20+i, every other one
// active
func NewUsers(n int) []types.Row {
	rows := make([]types.Row, n)
	for i := range n {
		id := int64(i + 1)
		rows[i] = NewUser(id, "user"+strconv.FormatInt(id, 10), 20+id, id%2 == 1)
	}

	return rows
}

// UsersSchema returns the schema of UsersTable
func UsersSchema() types.TableSchema {
	return types.TableSchema{
		Name: UsersTable,
		Columns: []types.ColumnDef{
			{Name: "ID", Type: types.Int},
			{Name: "name", Type: types.Str},
			{Name: "age", Type: types.Int},
			{Name: "active", Type: types.Bool},
		},
	}
}
