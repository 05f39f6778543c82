package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/kyleking/primitive-db/internal/testutil"
	"github.com/kyleking/primitive-db/internal/types"
)

func rowsWithIDs(ids ...int64) []types.Row {
	rows := make([]types.Row, len(ids))
	for i, id := range ids {
		rows[i] = types.Row{types.IDColumn: types.IntValue(id)}
	}

	return rows
}

func countingCompute(calls *int, rows []types.Row) ComputeFunc {
	return func(ctx context.Context) ([]types.Row, error) {
		*calls++
		return rows, nil
	}
}

func TestResultCache_HitAfterMiss(t *testing.T) {
	c := NewResultCache()
	ctx := context.Background()
	calls := 0

	rows, hit, err := c.GetOrCompute(ctx, "users", nil, countingCompute(&calls, rowsWithIDs(1, 2)))
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	if hit {
		t.Error("first lookup should be a miss")
	}

	if len(rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(rows))
	}

	rows, hit, err = c.GetOrCompute(ctx, "users", nil, countingCompute(&calls, rowsWithIDs(9)))
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	if !hit {
		t.Error("second lookup should be a hit")
	}

	if calls != 1 {
		t.Errorf("compute called %d times, expected 1", calls)
	}

	if len(rows) != 2 || rows[0].ID() != 1 {
		t.Errorf("cached rows changed: %v", rows)
	}
}

func TestResultCache_KeyIsOrderInsensitive(t *testing.T) {
	a := types.Predicate{
		{Column: "name", Value: types.StrValue("Ann")},
		{Column: "age", Value: types.IntValue(30)},
	}
	b := types.Predicate{a[1], a[0]}

	if Key(a) != Key(b) {
		t.Errorf("Keys differ: %q vs %q", Key(a), Key(b))
	}

	if Key(nil) != Key(types.Predicate{}) {
		t.Error("nil and empty predicates should share a key")
	}

	if Key(nil) == Key(a) {
		t.Error("all-rows key collides with a predicate key")
	}

	typed := types.Predicate{{Column: "v", Value: types.IntValue(1)}}
	text := types.Predicate{{Column: "v", Value: types.StrValue("1")}}

	if Key(typed) == Key(text) {
		t.Error("int and str values should produce different keys")
	}
}

func TestResultCache_KeyQuotesValues(t *testing.T) {
	two := types.Predicate{
		{Column: "name", Value: types.StrValue("x")},
		{Column: "zzz", Value: types.StrValue("y")},
	}
	forged := types.Predicate{
		{Column: "name", Value: types.StrValue(`x"&"zzz"=str:"y`)},
	}

	if Key(two) == Key(forged) {
		t.Errorf("distinct predicates share key %q", Key(two))
	}

	forgedUnquoted := types.Predicate{
		{Column: "name", Value: types.StrValue(`x"&zzz=str:"y`)},
	}

	if Key(two) == Key(forgedUnquoted) {
		t.Errorf("distinct predicates share key %q", Key(two))
	}

	c := NewResultCache()
	ctx := context.Background()
	calls := 0

	_, _, _ = c.GetOrCompute(ctx, "t", two, countingCompute(&calls, rowsWithIDs(1)))

	rows, hit, err := c.GetOrCompute(ctx, "t", forged, countingCompute(&calls, nil))
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	if hit || len(rows) != 0 {
		t.Errorf("forged predicate was answered from the cache: hit=%v rows=%v", hit, rows)
	}
}

func TestResultCache_InvalidateTable(t *testing.T) {
	c := NewResultCache()
	ctx := context.Background()
	calls := 0

	for _, table := range []string{"users", "orders"} {
		if _, _, err := c.GetOrCompute(ctx, table, nil, countingCompute(&calls, rowsWithIDs(1))); err != nil {
			t.Fatalf("GetOrCompute failed: %v", err)
		}
	}

	c.InvalidateTable("users")

	if _, hit, _ := c.GetOrCompute(ctx, "orders", nil, countingCompute(&calls, nil)); !hit {
		t.Error("orders should still be cached")
	}

	if _, hit, _ := c.GetOrCompute(ctx, "users", nil, countingCompute(&calls, nil)); hit {
		t.Error("users should have been invalidated")
	}
}

func TestResultCache_ScopeAll(t *testing.T) {
	c := NewResultCache(WithScope(ScopeAll))
	ctx := context.Background()
	calls := 0

	_, _, _ = c.GetOrCompute(ctx, "orders", nil, countingCompute(&calls, rowsWithIDs(1)))
	c.InvalidateTable("users")

	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", c.Len())
	}
}

func TestResultCache_ErrorsAreNotCached(t *testing.T) {
	c := NewResultCache()
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(ctx, "users", nil, func(context.Context) ([]types.Row, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	if c.Len() != 0 {
		t.Errorf("failed compute should not be stored")
	}
}

func TestResultCache_ReturnsCopies(t *testing.T) {
	c := NewResultCache()
	ctx := context.Background()
	calls := 0

	rows, _, _ := c.GetOrCompute(ctx, "users", nil, countingCompute(&calls, rowsWithIDs(1, 2)))
	rows[0] = types.Row{types.IDColumn: types.IntValue(99)}

	again, _, _ := c.GetOrCompute(ctx, "users", nil, countingCompute(&calls, nil))
	if again[0].ID() != 1 {
		t.Errorf("cached slice was modified through a returned slice")
	}
}

func TestResultCache_Disabled(t *testing.T) {
	c := NewResultCache(WithEnabled(false))
	ctx := context.Background()
	calls := 0

	for i := 0; i < 2; i++ {
		if _, hit, _ := c.GetOrCompute(ctx, "users", nil, countingCompute(&calls, rowsWithIDs(1))); hit {
			t.Error("disabled cache should never hit")
		}
	}

	if calls != 2 {
		t.Errorf("Expected 2 computes, got %d", calls)
	}
}

func TestResultCache_Stats(t *testing.T) {
	c := NewResultCache()
	ctx := context.Background()
	calls := 0

	pred := types.Predicate{{Column: "age", Value: types.IntValue(1)}}

	_, _, _ = c.GetOrCompute(ctx, "users", nil, countingCompute(&calls, nil))
	_, _, _ = c.GetOrCompute(ctx, "users", nil, countingCompute(&calls, nil))
	_, _, _ = c.GetOrCompute(ctx, "users", pred, countingCompute(&calls, nil))
	_, _, _ = c.GetOrCompute(ctx, "users", pred, countingCompute(&calls, nil))

	stats := c.GetStats()
	if stats.Hits != 2 || stats.Misses != 2 {
		t.Errorf("Expected 2 hits and 2 misses, got %d/%d", stats.Hits, stats.Misses)
	}

	if stats.TotalEntries != 2 || stats.Tables != 1 {
		t.Errorf("Expected 2 entries in 1 table, got %d in %d", stats.TotalEntries, stats.Tables)
	}

	if stats.HitRate != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %f", stats.HitRate)
	}

	c.Clear()

	if stats := c.GetStats(); stats.Hits != 0 || stats.TotalEntries != 0 {
		t.Errorf("Clear should reset stats, got %+v", stats)
	}
}

func TestResultCache_ContextCancelled(t *testing.T) {
	c := NewResultCache()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0

	_, _, err := c.GetOrCompute(ctx, "users", nil, countingCompute(&calls, nil))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	if calls != 0 {
		t.Error("compute should not run on a cancelled context")
	}
}

func TestResultCache_ConcurrentAccess(t *testing.T) {
	c := NewResultCache()
	ctx := testutil.Context(t)
	users := testutil.NewUsers(4)

	var computes atomic.Int64

	compute := func(context.Context) ([]types.Row, error) {
		computes.Add(1)
		return users, nil
	}

	testutil.RunConcurrent(t, testutil.TestWorkers, func(workerID int) {
		pred := types.Predicate{{Column: "active", Value: types.BoolValue(workerID%2 == 0)}}

		for range 50 {
			rows, _, err := c.GetOrCompute(ctx, testutil.UsersTable, pred, compute)
			if err != nil {
				t.Errorf("worker %d: %v", workerID, err)
				return
			}

			if len(rows) != len(users) {
				t.Errorf("worker %d: expected %d rows, got %d", workerID, len(users), len(rows))
				return
			}
		}

		if workerID%4 == 0 {
			c.InvalidateTable(testutil.UsersTable)
		}
	})

	stats := c.GetStats()
	if stats.Hits+stats.Misses != int64(testutil.TestWorkers*50) {
		t.Errorf("Expected %d lookups, got %d", testutil.TestWorkers*50, stats.Hits+stats.Misses)
	}

	if computes.Load() != stats.Misses {
		t.Errorf("Expected one compute per miss, got %d computes for %d misses", computes.Load(), stats.Misses)
	}
}
