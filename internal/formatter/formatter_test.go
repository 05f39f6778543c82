package formatter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cli/go-gh/v2/pkg/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/primitive-db/internal/cache"
	"github.com/kyleking/primitive-db/internal/types"
)

var usersSchema = types.TableSchema{
	Name: "users",
	Columns: []types.ColumnDef{
		{Name: "ID", Type: types.Int},
		{Name: "name", Type: types.Str},
		{Name: "age", Type: types.Int},
		{Name: "active", Type: types.Bool},
	},
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestRenderRows(t *testing.T) {
	var buf bytes.Buffer

	rows := []types.Row{
		{"ID": types.IntValue(1), "name": types.StrValue("Ann"), "age": types.IntValue(31), "active": types.BoolValue(true)},
		{"ID": types.IntValue(2), "name": types.StrValue("Bob"), "age": types.IntValue(25), "active": types.BoolValue(false)},
	}

	require.NoError(t, NewFormatter().RenderRows(&buf, usersSchema, rows))

	out := lines(buf.String())
	require.Len(t, out, 3)
	assert.Equal(t, []string{"ID", "name", "age", "active"}, strings.Fields(out[0]))
	assert.Equal(t, []string{"1", "Ann", "31", "true"}, strings.Fields(out[1]))
	assert.Equal(t, []string{"2", "Bob", "25", "false"}, strings.Fields(out[2]))
}

func TestRenderRowsAlignsColumns(t *testing.T) {
	var buf bytes.Buffer

	rows := []types.Row{
		{"ID": types.IntValue(1), "name": types.StrValue("Alexandra"), "age": types.IntValue(3), "active": types.BoolValue(true)},
		{"ID": types.IntValue(10), "name": types.StrValue("Bo"), "age": types.IntValue(25), "active": types.BoolValue(false)},
	}

	require.NoError(t, NewFormatter().RenderRows(&buf, usersSchema, rows))

	out := lines(buf.String())
	require.Len(t, out, 3)

	// every row starts the age column at the same offset
	offset := strings.Index(out[0], "age")
	assert.Equal(t, "3", string(out[1][offset]))
	assert.Equal(t, "25", out[2][offset:offset+2])
}

func TestRenderRowsEmpty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewFormatter().RenderRows(&buf, usersSchema, nil))
	assert.Equal(t, EmptyResult+"\n", buf.String())
}

func TestRenderRowsKeepsLongValuesWithoutWidth(t *testing.T) {
	var buf bytes.Buffer

	long := strings.Repeat("x", 300)
	rows := []types.Row{
		{"ID": types.IntValue(1), "name": types.StrValue(long), "age": types.IntValue(1), "active": types.BoolValue(true)},
	}

	require.NoError(t, NewFormatter().RenderRows(&buf, usersSchema, rows))
	assert.Contains(t, buf.String(), long)
}

func TestRenderInfo(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewFormatter().RenderInfo(&buf, usersSchema, 1))
	assert.Equal(t, "Table: users\nColumns: ID:int, name:str, age:int, active:bool\nRows: 1\n", buf.String())
}

func TestRenderTables(t *testing.T) {
	var buf bytes.Buffer

	f := NewFormatter()
	require.NoError(t, f.RenderTables(&buf, []string{"items", "users"}))
	assert.Equal(t, "- items\n- users\n", buf.String())

	buf.Reset()
	require.NoError(t, f.RenderTables(&buf, nil))
	assert.Equal(t, "No tables.\n", buf.String())
}

func TestRenderCacheStats(t *testing.T) {
	var buf bytes.Buffer

	f := NewFormatter()
	stats := cache.Stats{TotalEntries: 2, Tables: 1, Hits: 3, Misses: 1, HitRate: 0.75}

	require.NoError(t, f.RenderCacheStats(&buf, stats, true))

	out := buf.String()
	assert.Contains(t, out, "hits")
	assert.Contains(t, out, "75.0%")

	buf.Reset()
	require.NoError(t, f.RenderCacheStats(&buf, stats, false))
	assert.Equal(t, "Result cache is disabled.\n", buf.String())
}

func TestFromTerminalWhenPiped(t *testing.T) {
	t.Setenv("GH_FORCE_TTY", "")

	f := FromTerminal(term.FromEnv())
	if term.FromEnv().IsTerminalOutput() {
		t.Skip("stdout is a terminal")
	}

	assert.Equal(t, 0, f.Width())
}

func TestWithWidth(t *testing.T) {
	assert.Equal(t, 80, NewFormatter(WithWidth(80)).Width())
}
