// Package shell is the interactive front-end: it turns input lines into
// commands, runs them on an engine session and prints the results.
package shell

import (
	"strings"

	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/query"
)

// Command names
const (
	CmdCreateTable = "create_table"
	CmdDropTable   = "drop_table"
	CmdListTables  = "list_tables"
	CmdInsert      = "insert"
	CmdSelect      = "select"
	CmdUpdate      = "update"
	CmdDelete      = "delete"
	CmdInfo        = "info"
	CmdHelp        = "help"
	CmdExit        = "exit"
	CmdCache       = "cache"
)

// Command is one tokenized input line
type Command struct {
	Name    string
	Table   string
	Columns []string
	Values  []string
	Set     string
	Where   string
	// Args holds the words after a built-in (cache clear)
	Args []string
}

// Parse tokenizes a line. A blank line yields a Command with an empty Name.
func Parse(line string) (Command, error) {
	name, rest := nextWord(line)
	if name == "" {
		return Command{}, nil
	}

	name = strings.ToLower(name)

	switch name {
	case CmdCreateTable:
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return Command{}, usage(name, "create_table <name> <column:type>...")
		}

		return Command{Name: name, Table: fields[0], Columns: fields[1:]}, nil

	case CmdDropTable, CmdInfo:
		fields := strings.Fields(rest)
		if len(fields) != 1 {
			return Command{}, usage(name, name+" <name>")
		}

		return Command{Name: name, Table: fields[0]}, nil

	case CmdListTables, CmdHelp, CmdExit, CmdCache:
		return Command{Name: name, Args: strings.Fields(rest)}, nil

	case CmdInsert:
		return parseInsert(rest)

	case CmdSelect:
		return parseSelect(rest)

	case CmdUpdate:
		return parseUpdate(rest)

	case CmdDelete:
		return parseDelete(rest)

	default:
		return Command{}, errors.NewSyntaxError("unknown command %q", name).
			WithSuggestion("Type help for the list of commands")
	}
}

// insert into <table> values (<v1>, ...)
func parseInsert(rest string) (Command, error) {
	const form = "insert into <table> values (<v1>, <v2>, ...)"

	rest, ok := expectWord(rest, "into")
	if !ok {
		return Command{}, usage(CmdInsert, form)
	}

	table, rest := nextWord(rest)
	if table == "" {
		return Command{}, usage(CmdInsert, form)
	}

	before, list, found := query.SplitClause(rest, "values")
	if !found || before != "" {
		return Command{}, usage(CmdInsert, form)
	}

	values, err := query.SplitValues(list)
	if err != nil {
		return Command{}, err
	}

	return Command{Name: CmdInsert, Table: table, Values: values}, nil
}

// select from <table> [where ...]
func parseSelect(rest string) (Command, error) {
	const form = "select from <table> [where <column>=<value> [and ...]]"

	rest, ok := expectWord(rest, "from")
	if !ok {
		return Command{}, usage(CmdSelect, form)
	}

	table, rest := nextWord(rest)
	if table == "" {
		return Command{}, usage(CmdSelect, form)
	}

	if strings.TrimSpace(rest) == "" {
		return Command{Name: CmdSelect, Table: table}, nil
	}

	where, err := whereClause(CmdSelect, rest, form)
	if err != nil {
		return Command{}, err
	}

	return Command{Name: CmdSelect, Table: table, Where: where}, nil
}

// update <table> set <assignments> where ...
func parseUpdate(rest string) (Command, error) {
	const form = "update <table> set <column>=<value>[, ...] where <column>=<value> [and ...]"

	table, rest := nextWord(rest)
	if table == "" {
		return Command{}, usage(CmdUpdate, form)
	}

	before, tail, found := query.SplitClause(rest, "set")
	if !found || before != "" {
		return Command{}, usage(CmdUpdate, form)
	}

	set, where, hasWhere := query.SplitClause(tail, "where")
	if set == "" {
		return Command{}, errors.NewSyntaxError("missing SET assignments").
			WithSuggestion("Usage: " + form)
	}

	if hasWhere && where == "" {
		return Command{}, errors.NewSyntaxError("missing WHERE condition").
			WithSuggestion("Usage: " + form)
	}

	return Command{Name: CmdUpdate, Table: table, Set: set, Where: where}, nil
}

// delete from <table> where ...
func parseDelete(rest string) (Command, error) {
	const form = "delete from <table> where <column>=<value> [and ...]"

	rest, ok := expectWord(rest, "from")
	if !ok {
		return Command{}, usage(CmdDelete, form)
	}

	table, rest := nextWord(rest)
	if table == "" {
		return Command{}, usage(CmdDelete, form)
	}

	if strings.TrimSpace(rest) == "" {
		return Command{Name: CmdDelete, Table: table}, nil
	}

	where, err := whereClause(CmdDelete, rest, form)
	if err != nil {
		return Command{}, err
	}

	return Command{Name: CmdDelete, Table: table, Where: where}, nil
}

// whereClause requires rest to be "where <conditions>"
func whereClause(cmd, rest, form string) (string, error) {
	before, where, found := query.SplitClause(rest, "where")
	if !found || before != "" {
		return "", usage(cmd, form)
	}

	if where == "" {
		return "", errors.NewSyntaxError("missing WHERE condition").
			WithSuggestion("Usage: " + form)
	}

	return where, nil
}

// nextWord splits off the first whitespace separated word
func nextWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)

	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}

	return s[:idx], strings.TrimSpace(s[idx:])
}

// expectWord consumes keyword (any case) from the front of s
func expectWord(s, keyword string) (string, bool) {
	word, rest := nextWord(s)
	if !strings.EqualFold(word, keyword) {
		return s, false
	}

	return rest, true
}

func usage(cmd, form string) error {
	return errors.NewSyntaxError("malformed %s command", cmd).
		WithSuggestion("Usage: " + form)
}
