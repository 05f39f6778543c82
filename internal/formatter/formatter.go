package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/cli/go-gh/v2/pkg/term"

	"github.com/kyleking/primitive-db/internal/cache"
	"github.com/kyleking/primitive-db/internal/types"
)

// noWrapWidth is wide enough that the table printer never truncates a cell
const noWrapWidth = 1 << 16

// EmptyResult is printed instead of a table when a select matches nothing
const EmptyResult = "No rows found."

// Formatter renders command results as text
type Formatter struct {
	width int
}

// Option configures a Formatter
type Option func(*Formatter)

// WithWidth limits table output to width columns. Zero disables truncation.
func WithWidth(width int) Option {
	return func(f *Formatter) {
		f.width = width
	}
}

// NewFormatter creates a new formatter instance
func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// FromTerminal sizes tables to the terminal when output is interactive, and
// leaves them untruncated when output is piped
func FromTerminal(t term.Term) *Formatter {
	if !t.IsTerminalOutput() {
		return NewFormatter()
	}

	width, _, err := t.Size()
	if err != nil {
		return NewFormatter()
	}

	return NewFormatter(WithWidth(width))
}

// Width returns the configured table width, zero when unlimited
func (f *Formatter) Width() int {
	return f.width
}

// RenderRows prints rows as a table whose header is the schema's column names
func (f *Formatter) RenderRows(w io.Writer, schema types.TableSchema, rows []types.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, EmptyResult)
		return err
	}

	tp := f.newTable(w)
	tp.AddHeader(schema.ColumnNames())

	for _, row := range rows {
		for _, col := range schema.Columns {
			tp.AddField(row[col.Name].Display())
		}

		tp.EndRow()
	}

	return tp.Render()
}

// RenderInfo prints a table's name, columns and row count
func (f *Formatter) RenderInfo(w io.Writer, schema types.TableSchema, rowCount int) error {
	columns := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		columns[i] = col.String()
	}

	_, err := fmt.Fprintf(w, "Table: %s\nColumns: %s\nRows: %d\n",
		schema.Name, strings.Join(columns, ", "), rowCount)

	return err
}

// RenderTables prints one table name per line
func (f *Formatter) RenderTables(w io.Writer, names []string) error {
	if len(names) == 0 {
		_, err := fmt.Fprintln(w, "No tables.")
		return err
	}

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "- %s\n", name); err != nil {
			return err
		}
	}

	return nil
}

// RenderCacheStats prints the result cache counters
func (f *Formatter) RenderCacheStats(w io.Writer, stats cache.Stats, enabled bool) error {
	if !enabled {
		_, err := fmt.Fprintln(w, "Result cache is disabled.")
		return err
	}

	tp := f.newTable(w)
	tp.AddHeader([]string{"metric", "value"})

	fields := [][2]string{
		{"entries", fmt.Sprintf("%d", stats.TotalEntries)},
		{"tables", fmt.Sprintf("%d", stats.Tables)},
		{"hits", fmt.Sprintf("%d", stats.Hits)},
		{"misses", fmt.Sprintf("%d", stats.Misses)},
		{"hit rate", fmt.Sprintf("%.1f%%", stats.HitRate*100)},
	}

	for _, field := range fields {
		tp.AddField(field[0])
		tp.AddField(field[1])
		tp.EndRow()
	}

	return tp.Render()
}

// newTable always uses the aligned printer so headers are kept when output
// is piped
func (f *Formatter) newTable(w io.Writer) tableprinter.TablePrinter {
	width := f.width
	if width <= 0 {
		width = noWrapWidth
	}

	return tableprinter.New(w, true, width)
}
