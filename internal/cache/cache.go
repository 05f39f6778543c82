package cache

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kyleking/primitive-db/internal/types"
)

// Scope controls how much of the cache a mutation invalidates
type Scope string

const (
	// ScopeTable drops only the entries of the mutated table
	ScopeTable Scope = "table"
	// ScopeAll drops every entry on any mutation
	ScopeAll Scope = "all"
)

// allRowsKey is the key used for a select without WHERE. It cannot collide
// with a rendered predicate because those always start with a quote.
const allRowsKey = "*"

// ComputeFunc produces the rows for a cache miss
type ComputeFunc func(ctx context.Context) ([]types.Row, error)

// Stats represents cache statistics
type Stats struct {
	TotalEntries int64   `json:"total_entries"`
	Tables       int64   `json:"tables"`
	HitRate      float64 `json:"hit_rate"`
	MissRate     float64 `json:"miss_rate"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
}

// ResultCache memoizes select results per table and canonical predicate.
// Entries have no TTL; they live until the table is invalidated.
type ResultCache struct {
	mu      sync.RWMutex
	scope   Scope
	enabled bool
	entries map[string]map[string][]types.Row
	stats   Stats
}

// Option configures a ResultCache
type Option func(*ResultCache)

// WithScope sets the invalidation scope
func WithScope(scope Scope) Option {
	return func(c *ResultCache) {
		if scope == ScopeAll {
			c.scope = ScopeAll
		} else {
			c.scope = ScopeTable
		}
	}
}

// WithEnabled turns memoization on or off. A disabled cache always computes.
func WithEnabled(enabled bool) Option {
	return func(c *ResultCache) {
		c.enabled = enabled
	}
}

// NewResultCache creates an empty cache
func NewResultCache(opts ...Option) *ResultCache {
	c := &ResultCache{
		scope:   ScopeTable,
		enabled: true,
		entries: make(map[string]map[string][]types.Row),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Key renders the canonical form of a predicate: conditions sorted and joined
// with "&". Column names and value text are Go-quoted, so no value can forge
// a separator. A nil or empty predicate has its own key.
func Key(pred types.Predicate) string {
	if len(pred) == 0 {
		return allRowsKey
	}

	parts := make([]string, len(pred))
	for i, cond := range pred {
		parts[i] = strconv.Quote(cond.Column) + "=" + cond.Value.Type.String() + ":" + strconv.Quote(cond.Value.Display())
	}

	sort.Strings(parts)

	return strings.Join(parts, "&")
}

// GetOrCompute returns the cached rows for (table, pred), or calls compute and
// stores its result. hit reports whether compute was skipped. Errors from
// compute are returned and nothing is stored.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	table string,
	pred types.Predicate,
	compute ComputeFunc,
) ([]types.Row, bool, error) {
	if !c.enabled {
		rows, err := compute(ctx)
		return rows, false, err
	}

	key := Key(pred)

	c.mu.Lock()
	if rows, ok := c.entries[table][key]; ok {
		c.stats.Hits++
		c.mu.Unlock()

		return cloneRows(rows), true, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	rows, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[table] == nil {
		c.entries[table] = make(map[string][]types.Row)
	}

	c.entries[table][key] = cloneRows(rows)

	return rows, false, nil
}

// InvalidateTable drops the entries of one table, or everything when the
// cache was built with ScopeAll.
func (c *ResultCache) InvalidateTable(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scope == ScopeAll {
		c.entries = make(map[string]map[string][]types.Row)
		return
	}

	delete(c.entries, table)
}

// Clear drops every entry and resets the statistics
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]map[string][]types.Row)
	c.stats = Stats{}
}

// Len returns the number of cached results
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, byKey := range c.entries {
		n += len(byKey)
	}

	return n
}

// Enabled reports whether results are memoized
func (c *ResultCache) Enabled() bool {
	return c.enabled
}

// GetStats returns cache statistics
func (c *ResultCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Tables = int64(len(c.entries))

	for _, byKey := range c.entries {
		stats.TotalEntries += int64(len(byKey))
	}

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
		stats.MissRate = float64(stats.Misses) / float64(total)
	}

	return stats
}

func cloneRows(rows []types.Row) []types.Row {
	if rows == nil {
		return nil
	}

	out := make([]types.Row, len(rows))
	copy(out, rows)

	return out
}
