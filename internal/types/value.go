package types

import (
	"strconv"
	"strings"

	"github.com/kyleking/primitive-db/internal/errors"
)

// Value is a single typed cell. Only the field matching Type is meaningful.
type Value struct {
	Type ColumnType

	Int  int64
	Str  string
	Bool bool
}

// IntValue builds an Int value
func IntValue(i int64) Value { return Value{Type: Int, Int: i} }

// StrValue builds a Str value
func StrValue(s string) Value { return Value{Type: Str, Str: s} }

// BoolValue builds a Bool value
func BoolValue(b bool) Value { return Value{Type: Bool, Bool: b} }

// Equal compares two values including their type tag
func (v Value) Equal(other Value) bool {
	if v.Type != other.Type {
		return false
	}

	switch v.Type {
	case Int:
		return v.Int == other.Int
	case Str:
		return v.Str == other.Str
	case Bool:
		return v.Bool == other.Bool
	default:
		return false
	}
}

// String renders the canonical literal, the form Convert accepts back.
// Strings are double-quoted without escaping.
func (v Value) String() string {
	if v.Type == Str {
		return `"` + v.Str + `"`
	}

	return v.Display()
}

// Display renders the bare value for output
func (v Value) Display() string {
	switch v.Type {
	case Int:
		return strconv.FormatInt(v.Int, 10)
	case Str:
		return v.Str
	case Bool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// Interface returns the value as a plain Go value for encoders
func (v Value) Interface() interface{} {
	switch v.Type {
	case Int:
		return v.Int
	case Str:
		return v.Str
	case Bool:
		return v.Bool
	default:
		return nil
	}
}

// Convert turns a raw text token into a Value of the declared type.
func Convert(raw string, t ColumnType) (Value, error) {
	switch t {
	case Int:
		s := strings.TrimSpace(raw)

		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, errors.NewConversionError(raw, t.String())
		}

		return IntValue(i), nil
	case Bool:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		default:
			return Value{}, errors.NewConversionError(raw, t.String())
		}
	case Str:
		s := strings.TrimSpace(raw)
		if len(s) < 2 || s[0] != s[len(s)-1] || (s[0] != '"' && s[0] != '\'') {
			return Value{}, errors.NewConversionError(raw, t.String()).
				WithSuggestion("String literals must be enclosed in matching quotes")
		}

		return StrValue(s[1 : len(s)-1]), nil
	default:
		return Value{}, errors.NewSchemaError("unsupported column type %d", int(t))
	}
}

// FromInterface converts a decoded storage value (JSON or BSON) into a Value of
// the declared type. JSON numbers arrive as json.Number-like strings, float64 or
// integer kinds depending on the decoder.
func FromInterface(raw interface{}, t ColumnType) (Value, error) {
	switch t {
	case Int:
		switch n := raw.(type) {
		case int64:
			return IntValue(n), nil
		case int32:
			return IntValue(int64(n)), nil
		case int:
			return IntValue(int64(n)), nil
		case float64:
			if n != float64(int64(n)) {
				break
			}

			return IntValue(int64(n)), nil
		case interface{ Int64() (int64, error) }:
			i, err := n.Int64()
			if err != nil {
				break
			}

			return IntValue(i), nil
		}
	case Str:
		if s, ok := raw.(string); ok {
			return StrValue(s), nil
		}
	case Bool:
		if b, ok := raw.(bool); ok {
			return BoolValue(b), nil
		}
	default:
		return Value{}, errors.NewSchemaError("unsupported column type %d", int(t))
	}

	return Value{}, errors.Newf(errors.ErrTypeConversion, "stored value %v is not a valid %s", raw, t)
}
