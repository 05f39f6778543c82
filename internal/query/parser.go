// Package query parses the SET, WHERE and VALUES fragments of commands into
// typed conditions checked against a table schema.
package query

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/types"
)

// ParseEquality parses a single column=value fragment. The value is converted
// to the declared type of the column.
func ParseEquality(text string, schema types.TableSchema) (types.Condition, error) {
	fragment := strings.TrimSpace(text)

	left, right, ok := strings.Cut(fragment, "=")
	if !ok {
		return types.Condition{}, errors.NewSyntaxError("invalid condition %q (expected column=value)", fragment)
	}

	column := strings.TrimSpace(left)
	raw := strings.TrimSpace(right)

	if column == "" || raw == "" {
		return types.Condition{}, errors.NewSyntaxError("invalid condition %q (expected column=value)", fragment)
	}

	col, found := schema.Column(column)
	if !found {
		return types.Condition{}, errors.NewUnknownColumnError(schema.Name, column)
	}

	value, err := types.Convert(raw, col.Type)
	if err != nil {
		return types.Condition{}, err
	}

	return types.Condition{Column: column, Value: value}, nil
}

// ParseSet parses a comma separated list of assignments. Order and duplicate
// columns are kept.
func ParseSet(text string, schema types.TableSchema) (types.Assignment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewSyntaxError("empty SET clause")
	}

	fragments := splitOutsideQuotes(text, commaSeparator)
	assignment := make(types.Assignment, 0, len(fragments))

	for _, fragment := range fragments {
		cond, err := ParseEquality(fragment, schema)
		if err != nil {
			return nil, err
		}

		assignment = append(assignment, cond)
	}

	return assignment, nil
}

// ParseWhere parses conditions joined by the word "and" (any case)
func ParseWhere(text string, schema types.TableSchema) (types.Predicate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewSyntaxError("empty WHERE clause")
	}

	fragments := splitOutsideQuotes(text, andSeparator)
	predicate := make(types.Predicate, 0, len(fragments))

	for _, fragment := range fragments {
		cond, err := ParseEquality(fragment, schema)
		if err != nil {
			return nil, err
		}

		predicate = append(predicate, cond)
	}

	return predicate, nil
}

// SplitClause finds keyword as a whole word outside quoted literals and
// returns the text before and after it. found is false when the keyword does
// not occur, in which case before holds the whole text.
func SplitClause(text, keyword string) (before, after string, found bool) {
	idx := findKeyword(text, keyword)
	if idx < 0 {
		return strings.TrimSpace(text), "", false
	}

	return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+len(keyword):]), true
}

// SplitValues splits the parenthesised VALUES list of an insert into raw
// tokens. The surrounding parentheses are required.
func SplitValues(text string) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 2 || trimmed[0] != '(' || trimmed[len(trimmed)-1] != ')' {
		return nil, errors.NewSyntaxError("values must be enclosed in parentheses: %q", trimmed)
	}

	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return []string{}, nil
	}

	values := splitOutsideQuotes(inner, commaSeparator)
	for _, v := range values {
		if v == "" {
			return nil, errors.NewSyntaxError("empty value in list %q", trimmed)
		}
	}

	return values, nil
}

// separator reports the length of a separator starting at i, or 0
type separator func(s string, i int) int

func commaSeparator(s string, i int) int {
	if s[i] == ',' {
		return 1
	}

	return 0
}

// andSeparator matches "and" bounded by whitespace on both sides, consuming
// the surrounding whitespace.
func andSeparator(s string, i int) int {
	if !isSpace(s[i]) {
		return 0
	}

	j := i
	for j < len(s) && isSpace(s[j]) {
		j++
	}

	if j+3 > len(s) || !strings.EqualFold(s[j:j+3], "and") {
		return 0
	}

	k := j + 3
	if k >= len(s) || !isSpace(s[k]) {
		return 0
	}

	for k < len(s) && isSpace(s[k]) {
		k++
	}

	return k - i
}

// splitOutsideQuotes splits s wherever sep matches outside a quoted literal.
// Fragments are trimmed.
func splitOutsideQuotes(s string, sep separator) []string {
	var (
		parts []string
		quote byte
		start int
	)

	for i := 0; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			if c == quote {
				quote = 0
			}

			continue
		}

		if c == '"' || c == '\'' {
			quote = c
			continue
		}

		if n := sep(s, i); n > 0 {
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + n
			i = start - 1
		}
	}

	return append(parts, strings.TrimSpace(s[start:]))
}

// findKeyword returns the byte offset of the first whole-word, case-insensitive
// occurrence of keyword outside quotes, or -1.
func findKeyword(s, keyword string) int {
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			if c == quote {
				quote = 0
			}

			continue
		}

		if c == '"' || c == '\'' {
			quote = c
			continue
		}

		if i+len(keyword) > len(s) || !strings.EqualFold(s[i:i+len(keyword)], keyword) {
			continue
		}

		if r, _ := utf8.DecodeLastRuneInString(s[:i]); i > 0 && isWordRune(r) {
			continue
		}

		end := i + len(keyword)
		if r, _ := utf8.DecodeRuneInString(s[end:]); end < len(s) && isWordRune(r) {
			continue
		}

		return i
	}

	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
