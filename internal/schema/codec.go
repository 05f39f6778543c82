package schema

import (
	"bytes"

	json "github.com/goccy/go-json"

	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/types"
)

// tableEntry is the on-disk shape of one catalog entry
type tableEntry struct {
	Columns []types.ColumnDef `json:"columns"`
	LastID  int64             `json:"last_id,omitempty"`
}

// EncodeCatalog serialises the catalog as an indented JSON object keyed by table name
func EncodeCatalog(s *Store) ([]byte, error) {
	entries := make(map[string]tableEntry, s.Len())
	for _, table := range s.Tables() {
		entries[table.Name] = tableEntry{Columns: table.Columns, LastID: table.LastID}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to encode metadata")
	}

	return data, nil
}

// DecodeCatalog parses catalog metadata. Two shapes are accepted per table:
// the current object form {"columns": [...], "last_id": N} and the legacy
// bare list of {"name", "type"} objects. Legacy entries without an ID column
// get one prepended.
func DecodeCatalog(data []byte) (*Store, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewStore(), nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to parse metadata")
	}

	entries := make(map[string][]byte, len(raw))
	for name, msg := range raw {
		entries[name] = msg
	}

	return DecodeEntries(entries)
}

// EncodeEntry serialises the definition of a single table
func EncodeEntry(table types.TableSchema) ([]byte, error) {
	data, err := json.Marshal(tableEntry{Columns: table.Columns, LastID: table.LastID})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to encode table %q", table.Name)
	}

	return data, nil
}

// DecodeEntries builds a catalog from per-table definitions in either shape
func DecodeEntries(entries map[string][]byte) (*Store, error) {
	store := NewStore()

	for name, msg := range entries {
		entry, err := decodeEntry(msg)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeStorage, "invalid metadata for table %q", name)
		}

		table := types.TableSchema{Name: name, Columns: entry.Columns, LastID: entry.LastID}
		if len(table.Columns) == 0 || table.Columns[0].Name != types.IDColumn {
			table.Columns = append([]types.ColumnDef{{Name: types.IDColumn, Type: types.Int}}, table.Columns...)
		}

		if err := store.Put(table); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeStorage, "invalid metadata for table %q", name)
		}
	}

	return store, nil
}

func decodeEntry(msg []byte) (tableEntry, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 {
		return tableEntry{}, errors.New(errors.ErrTypeStorage, "empty table entry")
	}

	var entry tableEntry

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entry.Columns); err != nil {
			return tableEntry{}, err
		}
	case '{':
		if err := json.Unmarshal(trimmed, &entry); err != nil {
			return tableEntry{}, err
		}
	default:
		return tableEntry{}, errors.New(errors.ErrTypeStorage, "table entry must be an object or a list")
	}

	return entry, nil
}
