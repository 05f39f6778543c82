package storage

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/types"
)

// Codec encodes the rows of one table into a data file
type Codec interface {
	Extension() string
	Encode(table types.TableSchema, rows []types.Row) ([]byte, error)
	Decode(table types.TableSchema, data []byte) ([]types.Row, error)
}

// NewCodec returns the codec for a storage format name
func NewCodec(format string) (Codec, error) {
	switch format {
	case "", "json":
		return JSONCodec{}, nil
	case "bson":
		return BSONCodec{}, nil
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unsupported storage format %q", format), "storage.format")
	}
}

// JSONCodec stores rows as an indented JSON array of objects
type JSONCodec struct{}

// Extension returns the data file suffix
func (JSONCodec) Extension() string { return ".json" }

// Encode writes each row as an object whose keys follow the schema order
func (JSONCodec) Encode(table types.TableSchema, rows []types.Row) ([]byte, error) {
	ordered := make([]orderedRow, len(rows))
	for i, row := range rows {
		ordered[i] = orderedRow{columns: table.Columns, row: row}
	}

	data, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to encode rows of table %q", table.Name)
	}

	return data, nil
}

// Decode parses a JSON array of objects. Numbers are kept exact.
func (JSONCodec) Decode(table types.TableSchema, data []byte) ([]types.Row, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []types.Row{}, nil
	}

	var records []map[string]interface{}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&records); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to parse data file of table %q", table.Name)
	}

	return rowsFromRecords(records, table)
}

type orderedRow struct {
	columns []types.ColumnDef
	row     types.Row
}

func (o orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, col := range o.columns {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(o.row[col.Name].Interface())
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// BSONCodec stores rows as a single BSON document {"rows": [...]}
type BSONCodec struct{}

type bsonTable struct {
	Rows []bson.M `bson:"rows"`
}

// Extension returns the data file suffix
func (BSONCodec) Extension() string { return ".bson" }

// Encode writes each row as an ordered BSON document
func (BSONCodec) Encode(table types.TableSchema, rows []types.Row) ([]byte, error) {
	docs := make([]bson.D, len(rows))

	for i, row := range rows {
		doc := make(bson.D, 0, len(table.Columns))
		for _, col := range table.Columns {
			doc = append(doc, bson.E{Key: col.Name, Value: row[col.Name].Interface()})
		}

		docs[i] = doc
	}

	data, err := bson.Marshal(bson.D{{Key: "rows", Value: docs}})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to encode rows of table %q", table.Name)
	}

	return data, nil
}

// Decode parses the rows document
func (BSONCodec) Decode(table types.TableSchema, data []byte) ([]types.Row, error) {
	if len(data) == 0 {
		return []types.Row{}, nil
	}

	var doc bsonTable
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to parse data file of table %q", table.Name)
	}

	records := make([]map[string]interface{}, len(doc.Rows))
	for i, m := range doc.Rows {
		records[i] = map[string]interface{}(m)
	}

	return rowsFromRecords(records, table)
}
