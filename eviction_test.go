package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evictionEntries builds a live-entry map from the given entries.
func evictionEntries(entries ...*Entry) map[string]*Entry {
	m := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		m[e.Key] = e
	}
	return m
}

func TestNewStrategy(t *testing.T) {
	tests := []struct {
		name        string
		strategy    StrategyType
		expectError bool
	}{
		{name: "lru", strategy: StrategyLRU},
		{name: "lfu", strategy: StrategyLFU},
		{name: "fifo", strategy: StrategyFIFO},
		{name: "size", strategy: StrategySize},
		{name: "priority", strategy: StrategyPriority},
		{name: "empty defaults to lru", strategy: ""},
		{name: "unknown", strategy: "random", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy, err := NewStrategy(tt.strategy)
			if tt.expectError {
				require.Error(t, err)
				assert.Nil(t, strategy)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, strategy)
		})
	}
}

func TestLRUEviction(t *testing.T) {
	lru := NewLRUEviction()
	a := &Entry{Key: "a"}
	b := &Entry{Key: "b"}
	c := &Entry{Key: "c"}
	entries := evictionEntries(a, b, c)

	lru.OnAdd(a)
	lru.OnAdd(b)
	lru.OnAdd(c)

	// Never-accessed entries fall back to insertion order.
	victim, ok := lru.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "a", victim)

	// Accessing "a" makes "b" the least recently used.
	lru.OnAccess(a)
	victim, ok = lru.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "b", victim)

	// Removed keys are no longer candidates.
	lru.OnRemove(b)
	delete(entries, "b")
	victim, ok = lru.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "c", victim)
}

func TestLRUEviction_SkipsStaleKeys(t *testing.T) {
	lru := NewLRUEviction()
	a := &Entry{Key: "a"}
	b := &Entry{Key: "b"}
	lru.OnAdd(a)
	lru.OnAdd(b)

	// "a" is gone from the live set but the strategy was never told.
	victim, ok := lru.SelectVictim(evictionEntries(b))
	require.True(t, ok)
	assert.Equal(t, "b", victim)

	_, ok = lru.SelectVictim(map[string]*Entry{})
	assert.False(t, ok)
}

func TestLFUEviction(t *testing.T) {
	lfu := NewLFUEviction()
	a := &Entry{Key: "a"}
	b := &Entry{Key: "b"}
	c := &Entry{Key: "c"}
	entries := evictionEntries(a, b, c)

	lfu.OnAdd(a)
	lfu.OnAdd(b)
	lfu.OnAdd(c)

	// Access counts: a=5, b=2, c=1 (the add counts as the first access).
	for i := 0; i < 4; i++ {
		lfu.OnAccess(a)
	}
	lfu.OnAccess(b)

	victim, ok := lfu.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "c", victim)
}

func TestLFUEviction_TieBreakIsLeastRecent(t *testing.T) {
	lfu := NewLFUEviction()
	a := &Entry{Key: "a"}
	b := &Entry{Key: "b"}
	entries := evictionEntries(a, b)

	lfu.OnAdd(a)
	lfu.OnAdd(b)

	// Equal frequencies; accessing both promotes them in order, leaving
	// "a" the least recently accessed at the shared frequency.
	lfu.OnAccess(a)
	lfu.OnAccess(b)

	victim, ok := lfu.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "a", victim)
}

func TestLFUEviction_RemoveRecomputesMinimum(t *testing.T) {
	lfu := NewLFUEviction()
	a := &Entry{Key: "a"}
	b := &Entry{Key: "b"}

	lfu.OnAdd(a)
	lfu.OnAdd(b)
	lfu.OnAccess(b) // b=2, a=1

	lfu.OnRemove(a)

	victim, ok := lfu.SelectVictim(evictionEntries(b))
	require.True(t, ok)
	assert.Equal(t, "b", victim)

	lfu.OnRemove(b)
	_, ok = lfu.SelectVictim(map[string]*Entry{})
	assert.False(t, ok)
}

func TestFIFOEviction(t *testing.T) {
	fifo := NewFIFOEviction()
	a := &Entry{Key: "a"}
	b := &Entry{Key: "b"}
	c := &Entry{Key: "c"}
	entries := evictionEntries(a, b, c)

	fifo.OnAdd(a)
	fifo.OnAdd(b)
	fifo.OnAdd(c)

	// Accesses never change FIFO order.
	fifo.OnAccess(a)
	fifo.OnAccess(a)

	victim, ok := fifo.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "a", victim)

	fifo.OnRemove(a)
	delete(entries, "a")
	victim, ok = fifo.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "b", victim)
}

func TestFIFOEviction_ReinsertKeepsPosition(t *testing.T) {
	fifo := NewFIFOEviction()
	a := &Entry{Key: "a"}
	b := &Entry{Key: "b"}
	entries := evictionEntries(a, b)

	fifo.OnAdd(a)
	fifo.OnAdd(b)
	fifo.OnAdd(a) // replacement keeps the original slot

	victim, ok := fifo.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "a", victim)
}

func TestSizeEviction(t *testing.T) {
	size := NewSizeEviction()
	small := &Entry{Key: "small", SizeBytes: 10}
	large := &Entry{Key: "large", SizeBytes: 500}
	medium := &Entry{Key: "medium", SizeBytes: 100}
	entries := evictionEntries(small, large, medium)

	size.OnAdd(small)
	size.OnAdd(large)
	size.OnAdd(medium)

	victim, ok := size.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "large", victim)

	size.OnRemove(large)
	delete(entries, "large")
	victim, ok = size.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "medium", victim)
}

func TestSizeEviction_TieBreakIsInsertionOrder(t *testing.T) {
	size := NewSizeEviction()
	first := &Entry{Key: "first", SizeBytes: 64}
	second := &Entry{Key: "second", SizeBytes: 64}
	entries := evictionEntries(first, second)

	size.OnAdd(first)
	size.OnAdd(second)

	victim, ok := size.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "first", victim)
}

func TestPriorityEviction(t *testing.T) {
	priority := NewPriorityEviction()
	low := &Entry{Key: "low", Priority: 1}
	mid := &Entry{Key: "mid", Priority: 5}
	high := &Entry{Key: "high", Priority: 10}
	entries := evictionEntries(low, mid, high)

	priority.OnAdd(high)
	priority.OnAdd(low)
	priority.OnAdd(mid)

	victim, ok := priority.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "low", victim)
}

func TestPriorityEviction_UnsetPriorityIsLowest(t *testing.T) {
	priority := NewPriorityEviction()
	unset := &Entry{Key: "unset"} // priority 0
	ranked := &Entry{Key: "ranked", Priority: 3}
	entries := evictionEntries(unset, ranked)

	priority.OnAdd(unset)
	priority.OnAdd(ranked)

	victim, ok := priority.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "unset", victim)
}

func TestPriorityEviction_TieBreakIsLeastRecent(t *testing.T) {
	priority := NewPriorityEviction()
	a := &Entry{Key: "a", Priority: 2}
	b := &Entry{Key: "b", Priority: 2}
	entries := evictionEntries(a, b)

	priority.OnAdd(a)
	priority.OnAdd(b)

	// "a" was inserted first but accessed since; "b" is the colder of the
	// equal-priority pair.
	priority.OnAccess(a)

	victim, ok := priority.SelectVictim(entries)
	require.True(t, ok)
	assert.Equal(t, "b", victim)
}

func TestEviction_EmptyStrategies(t *testing.T) {
	strategies := []EvictionStrategy{
		NewLRUEviction(),
		NewLFUEviction(),
		NewFIFOEviction(),
		NewSizeEviction(),
		NewPriorityEviction(),
	}
	for _, strategy := range strategies {
		_, ok := strategy.SelectVictim(map[string]*Entry{})
		assert.False(t, ok)
	}
}
