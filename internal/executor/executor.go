// Package executor applies insert, select, update and delete semantics to the
// in-memory rows of one table.
//
// The functions never modify the slice they are given. Update copies every
// row it changes, so slices handed out earlier (for example by the result
// cache) keep their contents.
package executor

import (
	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/types"
)

// Insert converts raw values positionally against the non-ID columns and
// appends a new row. On any failure the original rows are returned with the
// error.
func Insert(schema types.TableSchema, rows []types.Row, raw []string) ([]types.Row, int64, error) {
	columns := schema.DataColumns()
	if len(raw) != len(columns) {
		return rows, 0, errors.NewArityError(len(columns), len(raw))
	}

	row := make(types.Row, len(schema.Columns))

	for i, col := range columns {
		value, err := types.Convert(raw[i], col.Type)
		if err != nil {
			return rows, 0, err
		}

		row[col.Name] = value
	}

	id := NextID(schema, rows)
	row[types.IDColumn] = types.IntValue(id)

	out := make([]types.Row, len(rows), len(rows)+1)
	copy(out, rows)

	return append(out, row), id, nil
}

// NextID returns the ID for the next inserted row: one more than both the
// highest ID present and the table's recorded high-water mark.
func NextID(schema types.TableSchema, rows []types.Row) int64 {
	highest := schema.LastID
	for _, row := range rows {
		if id := row.ID(); id > highest {
			highest = id
		}
	}

	return highest + 1
}

// Select returns the rows matching every condition, in their original order.
// An empty predicate returns all rows.
func Select(rows []types.Row, pred types.Predicate) []types.Row {
	out := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		if pred.Matches(row) {
			out = append(out, row)
		}
	}

	return out
}

// Update applies the assignment, in order, to every matching row. Assignments
// to ID are skipped. The count is the number of matched rows.
func Update(rows []types.Row, set types.Assignment, pred types.Predicate) ([]types.Row, int) {
	out := make([]types.Row, len(rows))
	count := 0

	for i, row := range rows {
		if !pred.Matches(row) {
			out[i] = row
			continue
		}

		updated := row.Clone()
		for _, cond := range set {
			if cond.Column == types.IDColumn {
				continue
			}

			updated[cond.Column] = cond.Value
		}

		out[i] = updated
		count++
	}

	return out, count
}

// Delete removes every matching row and returns the kept rows in order
func Delete(rows []types.Row, pred types.Predicate) ([]types.Row, int) {
	kept := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		if !pred.Matches(row) {
			kept = append(kept, row)
		}
	}

	return kept, len(rows) - len(kept)
}
