package types

// Row maps column names to values. Every row holds exactly the columns of its
// table schema, ID included.
type Row map[string]Value

// ID returns the row's ID value
func (r Row) ID() int64 {
	return r[IDColumn].Int
}

// Clone returns a shallow copy of the row; values are immutable
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}

	return out
}

// Condition is a single column = value pair
type Condition struct {
	Column string
	Value  Value
}

// String renders the condition as it would be typed
func (c Condition) String() string {
	return c.Column + "=" + c.Value.String()
}

// Predicate is a conjunction of equality conditions (WHERE)
type Predicate []Condition

// Matches reports whether every condition holds for the row. An empty
// predicate matches every row.
func (p Predicate) Matches(row Row) bool {
	for _, cond := range p {
		v, ok := row[cond.Column]
		if !ok || !v.Equal(cond.Value) {
			return false
		}
	}

	return true
}

// Assignment is an ordered list of column = value pairs (SET)
type Assignment []Condition
