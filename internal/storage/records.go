package storage

import (
	"sort"
	"strings"

	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/types"
)

// rowFromRecord validates a decoded record against the table schema. The
// record must hold exactly the schema's columns with values of the declared
// types.
func rowFromRecord(record map[string]interface{}, table types.TableSchema, index int) (types.Row, error) {
	if len(record) != len(table.Columns) {
		return nil, errors.Newf(errors.ErrTypeStorage,
			"row %d of table %q has columns [%s], expected [%s]",
			index, table.Name, recordKeys(record), strings.Join(table.ColumnNames(), ", "))
	}

	row := make(types.Row, len(table.Columns))

	for _, col := range table.Columns {
		raw, ok := record[col.Name]
		if !ok {
			return nil, errors.Newf(errors.ErrTypeStorage, "row %d of table %q is missing column %q", index, table.Name, col.Name)
		}

		value, err := types.FromInterface(raw, col.Type)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeStorage, "row %d of table %q, column %q", index, table.Name, col.Name)
		}

		row[col.Name] = value
	}

	return row, nil
}

// rowsFromRecords validates every record and checks that IDs are unique
func rowsFromRecords(records []map[string]interface{}, table types.TableSchema) ([]types.Row, error) {
	rows := make([]types.Row, 0, len(records))
	seen := make(map[int64]bool, len(records))

	for i, record := range records {
		row, err := rowFromRecord(record, table, i)
		if err != nil {
			return nil, err
		}

		if seen[row.ID()] {
			return nil, errors.Newf(errors.ErrTypeStorage, "duplicate ID %d in table %q", row.ID(), table.Name)
		}

		seen[row.ID()] = true
		rows = append(rows, row)
	}

	return rows, nil
}

func recordKeys(record map[string]interface{}) string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return strings.Join(keys, ", ")
}
