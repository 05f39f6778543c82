package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeSchema     ErrorType = "schema"
	ErrTypeSyntax     ErrorType = "syntax"
	ErrTypeConversion ErrorType = "conversion"
	ErrTypeArity      ErrorType = "arity"
	ErrTypeStorage    ErrorType = "storage"
	ErrTypeConfig     ErrorType = "config"
	ErrTypeInternal   ErrorType = "internal"
)

// Error represents a structured error with type and optional suggestions
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type == errType
	}

	return false
}

// GetType returns the error type if it's a structured error
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeInternal
}

// Describe returns the message of the outermost structured error, or the
// plain error text for anything else.
func Describe(err error) string {
	var structErr *Error
	if errors.As(err, &structErr) {
		if structErr.Cause != nil {
			return fmt.Sprintf("%s: %v", structErr.Message, structErr.Cause)
		}

		return structErr.Message
	}

	return err.Error()
}

// IsNotExist reports whether err was caused by a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// NewSchemaError creates a schema error
func NewSchemaError(format string, args ...interface{}) *Error {
	return Newf(ErrTypeSchema, format, args...)
}

// NewTableNotFoundError reports a table missing from the catalog
func NewTableNotFoundError(table string) *Error {
	return Newf(ErrTypeSchema, "table %q does not exist", table).
		WithSuggestion("Run list_tables to see existing tables")
}

// NewTableExistsError reports an attempt to create a table twice
func NewTableExistsError(table string) *Error {
	return Newf(ErrTypeSchema, "table %q already exists", table)
}

// NewUnknownColumnError reports a column that is not part of the table schema
func NewUnknownColumnError(table, column string) *Error {
	return Newf(ErrTypeSchema, "unknown column %q in table %q", column, table).
		WithSuggestion("Run info " + table + " to see its columns")
}

// NewSyntaxError reports a malformed command or clause fragment
func NewSyntaxError(format string, args ...interface{}) *Error {
	return Newf(ErrTypeSyntax, format, args...)
}

// NewConversionError reports a value that does not match its declared type
func NewConversionError(raw, typeName string) *Error {
	return Newf(ErrTypeConversion, "value %s is not a valid %s", raw, typeName)
}

// NewArityError reports a wrong number of values on insert
func NewArityError(expected, got int) *Error {
	return Newf(ErrTypeArity, "expected %d values, got %d", expected, got)
}

// NewConfigError creates a configuration error with suggestions
func NewConfigError(message, field string) *Error {
	err := New(ErrTypeConfig, message)
	if field != "" {
		err.Message = fmt.Sprintf("%s (field: %s)", message, field)
	}

	return err.
		WithSuggestion("Check your configuration file syntax").
		WithSuggestion("Run with --help to see valid configuration options")
}
