package polymarket

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/adapters/collaborators"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

func testMarkets(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{"id": string(rune('a' + i)), "question": "test market"})
	}
	return out
}

func newPolyManager(t *testing.T, process map[string]any) (*Manager, *shared.MockClock) {
	t.Helper()
	clock := shared.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	cfg := pipeline.NewManagerConfig()
	cfg.Process["scan_interval_seconds"] = 300
	cfg.Process["review_threshold"] = 2
	cfg.Process["max_cache"] = 100
	cfg.Process["max_trades_per_day"] = 20
	cfg.Process["fetch_limit"] = 100
	for k, v := range process {
		cfg.Process[k] = v
	}

	m, err := NewManager(Config{
		PolymarketClient: collaborators.NewMockPolymarketClient(),
		Workforce:        collaborators.NewMockWorkforce(),
		Clock:            clock,
		InitialConfig:    cfg,
		FeedCachePath:    filepath.Join(t.TempDir(), "feed_cache.json"),
	})
	require.NoError(t, err)
	return m, clock
}

func runBatch(m *Manager, triggerType string, markets []map[string]any) map[string]any {
	return m.Triggers.Run(context.Background(), "polymarket", "market_batch", map[string]any{
		"trigger_type": triggerType,
		"markets":      markets,
	})
}

func TestMarketBatch_SecondCallWithinScanIntervalIsThrottled(t *testing.T) {
	m, clock := newPolyManager(t, nil)

	first := runBatch(m, "interval", testMarkets(3))
	assert.Equal(t, "completed", first["status"])

	clock.Advance(10 * time.Second)
	second := runBatch(m, "interval", testMarkets(3))
	assert.Equal(t, "skipped", second["status"])
	assert.Equal(t, "interval_throttle", second["reason"])
}

func TestMarketBatch_ThresholdGatesUntilEnoughMarkets(t *testing.T) {
	m, clock := newPolyManager(t, map[string]any{"review_threshold": 3})

	out := runBatch(m, "interval", testMarkets(2))
	assert.Equal(t, "skipped", out["status"])
	assert.Equal(t, "threshold_not_ready", out["reason"])

	clock.Advance(301 * time.Second)
	out = runBatch(m, "interval", testMarkets(3))
	assert.Equal(t, "completed", out["status"])
}

func TestMarketBatch_DailyCapDisablesExecutionButStillAnalyzes(t *testing.T) {
	m, clock := newPolyManager(t, map[string]any{"max_trades_per_day": 1})

	first := runBatch(m, "interval", testMarkets(3))
	require.Equal(t, "completed", first["status"])
	assert.Equal(t, true, first["execution_enabled"])

	clock.Advance(301 * time.Second)
	second := runBatch(m, "interval", testMarkets(3))
	require.Equal(t, "completed", second["status"])
	assert.Equal(t, false, second["execution_enabled"])
}

func TestMarketBatch_DailyCounterRollsOverAtMidnightUTC(t *testing.T) {
	m, clock := newPolyManager(t, map[string]any{"max_trades_per_day": 1})

	first := runBatch(m, "interval", testMarkets(3))
	require.Equal(t, true, first["execution_enabled"])

	// Next scan lands on the following UTC day; the trade counter resets.
	clock.Advance(13 * time.Hour)
	second := runBatch(m, "interval", testMarkets(3))
	require.Equal(t, "completed", second["status"])
	assert.Equal(t, true, second["execution_enabled"])
}

func TestMarketBatch_ManualBypassesThrottleThresholdAndCap(t *testing.T) {
	m, _ := newPolyManager(t, map[string]any{"review_threshold": 100, "max_trades_per_day": 0})

	out := runBatch(m, "manual", testMarkets(1))
	assert.Equal(t, "completed", out["status"])
	assert.Equal(t, true, out["execution_enabled"])

	// Manual runs do not consume the feed cache.
	assert.Empty(t, m.FeedCache.PendingItems())
}

func TestMarketBatch_EmptyManualMarketsSkipsWithNoMarkets(t *testing.T) {
	m, _ := newPolyManager(t, nil)

	out := runBatch(m, "manual", nil)
	assert.Equal(t, "skipped", out["status"])
	assert.Equal(t, "no_markets", out["reason"])
}

func TestMarketBatch_ConcurrentScanReturnsInProgress(t *testing.T) {
	m, _ := newPolyManager(t, nil)

	m.scanMu.Lock()
	out := runBatch(m, "interval", testMarkets(3))
	m.scanMu.Unlock()

	assert.Equal(t, "in_progress", out["status"])
	assert.Equal(t, "scan_in_progress", out["reason"])
}

func TestMarketBatch_CompletedRunExhaustsFeedCache(t *testing.T) {
	m, _ := newPolyManager(t, nil)

	out := runBatch(m, "interval", testMarkets(3))
	require.Equal(t, "completed", out["status"])
	assert.Empty(t, m.FeedCache.PendingItems(), "processed markets must be pruned from the cache")
}

func TestFeedCache_MirrorSurvivesManagerRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed_cache.json")
	clock := shared.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	cfg := pipeline.NewManagerConfig()
	cfg.Process["review_threshold"] = 10

	build := func() *Manager {
		m, err := NewManager(Config{
			PolymarketClient: collaborators.NewMockPolymarketClient(),
			Workforce:        collaborators.NewMockWorkforce(),
			Clock:            clock,
			InitialConfig:    cfg,
			FeedCachePath:    path,
		})
		require.NoError(t, err)
		return m
	}

	first := build()
	out := runBatch(first, "interval", testMarkets(3))
	require.Equal(t, "skipped", out["status"], "below threshold, markets only accumulate")

	second := build()
	assert.Len(t, second.FeedCache.PendingItems(), 3, "restarted manager must restore the mirrored cache")
}
