package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/primitive-db/internal/errors"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		colType  ColumnType
		expected Value
		wantErr  errors.ErrorType
	}{
		{"int", "42", Int, IntValue(42), ""},
		{"negative int", " -7 ", Int, IntValue(-7), ""},
		{"int with plus", "+3", Int, IntValue(3), ""},
		{"int rejects float", "3.5", Int, Value{}, errors.ErrTypeConversion},
		{"int rejects text", "abc", Int, Value{}, errors.ErrTypeConversion},
		{"int rejects empty", "", Int, Value{}, errors.ErrTypeConversion},
		{"bool true", "true", Bool, BoolValue(true), ""},
		{"bool mixed case", " FaLsE ", Bool, BoolValue(false), ""},
		{"bool rejects yes", "yes", Bool, Value{}, errors.ErrTypeConversion},
		{"double quoted", `"Ann"`, Str, StrValue("Ann"), ""},
		{"single quoted", `'Bo'`, Str, StrValue("Bo"), ""},
		{"empty string literal", `""`, Str, StrValue(""), ""},
		{"padded literal", `  "x y"  `, Str, StrValue("x y"), ""},
		{"no escape processing", `"a\"b"`, Str, StrValue(`a\"b`), ""},
		{"unquoted string", "Ann", Str, Value{}, errors.ErrTypeConversion},
		{"mismatched quotes", `"Ann'`, Str, Value{}, errors.ErrTypeConversion},
		{"single quote char", `"`, Str, Value{}, errors.ErrTypeConversion},
		{"unknown type", "1", ColumnType(9), Value{}, errors.ErrTypeSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.raw, tt.colType)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, tt.wantErr), "got %v", err)

				return
			}

			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %v, got %v", tt.expected, got)
		})
	}
}

func TestConvertRoundTrip(t *testing.T) {
	values := []Value{
		IntValue(0), IntValue(-12), IntValue(9223372036854775807),
		BoolValue(true), BoolValue(false),
		StrValue("Ann"), StrValue(""), StrValue("with space"),
	}

	for _, v := range values {
		t.Run(v.String(), func(t *testing.T) {
			back, err := Convert(v.String(), v.Type)
			require.NoError(t, err)
			assert.True(t, v.Equal(back))
		})
	}
}

func TestValueEqualChecksType(t *testing.T) {
	assert.False(t, IntValue(1).Equal(StrValue("1")))
	assert.False(t, BoolValue(true).Equal(IntValue(1)))
	assert.True(t, StrValue("a").Equal(StrValue("a")))
}

func TestValueDisplay(t *testing.T) {
	assert.Equal(t, "31", IntValue(31).Display())
	assert.Equal(t, "Ann", StrValue("Ann").Display())
	assert.Equal(t, `"Ann"`, StrValue("Ann").String())
	assert.Equal(t, "true", BoolValue(true).Display())
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface(json.Number("30"), Int)
	require.NoError(t, err)
	assert.Equal(t, int64(30), v.Int)

	v, err = FromInterface(float64(7), Int)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int)

	v, err = FromInterface(int32(5), Int)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int)

	_, err = FromInterface(1.5, Int)
	assert.True(t, errors.IsType(err, errors.ErrTypeConversion))

	v, err = FromInterface("Ann", Str)
	require.NoError(t, err)
	assert.Equal(t, "Ann", v.Str)

	_, err = FromInterface(1, Str)
	assert.Error(t, err)

	v, err = FromInterface(true, Bool)
	require.NoError(t, err)
	assert.True(t, v.Bool)

	_, err = FromInterface("true", Bool)
	assert.Error(t, err)
}

func TestColumnTypeText(t *testing.T) {
	for _, ct := range []ColumnType{Int, Str, Bool} {
		text, err := ct.MarshalText()
		require.NoError(t, err)

		var back ColumnType
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, ct, back)
	}

	_, err := ParseColumnType("float")
	assert.True(t, errors.IsType(err, errors.ErrTypeSchema))

	parsed, err := ParseColumnType("INT")
	require.NoError(t, err)
	assert.Equal(t, Int, parsed)
}

func TestPredicateMatches(t *testing.T) {
	row := Row{IDColumn: IntValue(1), "name": StrValue("Ann"), "age": IntValue(30)}

	assert.True(t, Predicate(nil).Matches(row))
	assert.True(t, Predicate{{Column: "name", Value: StrValue("Ann")}}.Matches(row))
	assert.False(t, Predicate{
		{Column: "name", Value: StrValue("Ann")},
		{Column: "age", Value: IntValue(31)},
	}.Matches(row))
	assert.False(t, Predicate{{Column: "missing", Value: IntValue(1)}}.Matches(row))
}

func TestTableSchemaHelpers(t *testing.T) {
	schema := TableSchema{
		Name: "users",
		Columns: []ColumnDef{
			{Name: IDColumn, Type: Int},
			{Name: "name", Type: Str},
			{Name: "age", Type: Int},
		},
	}

	assert.Equal(t, []string{"ID", "name", "age"}, schema.ColumnNames())
	assert.Len(t, schema.DataColumns(), 2)

	col, ok := schema.Column("age")
	assert.True(t, ok)
	assert.Equal(t, "age:int", col.String())

	clone := schema.Clone()
	clone.Columns[1].Name = "changed"
	assert.Equal(t, "name", schema.Columns[1].Name)
}
