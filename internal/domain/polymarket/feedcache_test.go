package polymarket_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/domain/polymarket"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

func TestFeedCache_KeysByIDOrMarketID(t *testing.T) {
	clock := shared.NewMockClock(time.Now())
	cache := polymarket.NewFeedCache(10, 1, clock)

	cache.Update([]map[string]any{
		{"id": "m1", "question": "Will X happen"},
		{"market_id": "m2", "question": "Will Y happen"},
	})

	ids := map[string]bool{}
	for _, entry := range cache.PendingItems() {
		ids[entry["id"].(string)] = true
	}
	assert.True(t, ids["m1"])
	assert.True(t, ids["m2"])
}

func TestFeedCache_MarkProcessedPrunesExhaustedEntries(t *testing.T) {
	clock := shared.NewMockClock(time.Now())
	cache := polymarket.NewFeedCache(10, 1, clock)

	item := map[string]any{"id": "m1"}
	cache.Update([]map[string]any{item})
	require.Len(t, cache.PendingItems(), 1)

	cache.MarkProcessed([]map[string]any{item}, "")
	require.Empty(t, cache.PendingItems())

	// An exhausted entry is pruned, not remembered: the same market
	// re-observed later re-enters the cache as a fresh entry.
	cache.Update([]map[string]any{item})
	require.Len(t, cache.PendingItems(), 1)
}

func TestFeedCache_ReadyGatesOnThreshold(t *testing.T) {
	clock := shared.NewMockClock(time.Now())
	cache := polymarket.NewFeedCache(10, 3, clock)

	cache.Update([]map[string]any{{"id": "m1"}, {"id": "m2"}})
	assert.False(t, cache.Ready())

	cache.Update([]map[string]any{{"id": "m3"}})
	assert.True(t, cache.Ready())
}
