package dex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/adapters/collaborators"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

type dexFixture struct {
	manager   *Manager
	workforce *collaborators.MockWorkforce
	swap      *collaborators.MockSwapClient
	watchlist *collaborators.MockWatchlistToolkit
	wallet    *collaborators.MockWalletToolkit
	clock     *shared.MockClock
}

func newDexFixture(t *testing.T) *dexFixture {
	t.Helper()
	f := &dexFixture{
		workforce: collaborators.NewMockWorkforce(),
		swap:      collaborators.NewMockSwapClient(),
		watchlist: collaborators.NewMockWatchlistToolkit(),
		wallet:    collaborators.NewMockWalletToolkit(),
		clock:     shared.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	m, err := NewManager(Config{
		Workforce:        f.workforce,
		SwapClient:       f.swap,
		WatchlistToolkit: f.watchlist,
		WalletToolkit:    f.wallet,
		Clock:            f.clock,
	})
	require.NoError(t, err)
	f.manager = m
	return f
}

func TestManager_StartWithBothFlagsFalseIsNoOp(t *testing.T) {
	f := newDexFixture(t)

	f.manager.Start(context.Background(), false, false)
	assert.False(t, f.manager.isRunning())
}

func TestManager_StopThenStartRestoresSteadyState(t *testing.T) {
	f := newDexFixture(t)
	// Disable the global ROI evaluation and the per-position scan so the
	// watchlist loop idles between mock-clock ticks.
	f.manager.UpdateConfig(context.Background(),
		map[string]any{"watchlist_global_roi_trigger_enabled": false, "watchlist_trigger_pct": 0.0},
		nil)
	f.manager.WatchlistToolkit = nil

	f.manager.Start(context.Background(), false, true)
	assert.True(t, f.manager.isRunning())

	f.manager.Stop()
	assert.False(t, f.manager.isRunning())

	f.manager.Start(context.Background(), false, true)
	assert.True(t, f.manager.isRunning())
	f.manager.Stop()
}

func TestManager_TriggerCycleReturnsAcceptedWithExecutionID(t *testing.T) {
	f := newDexFixture(t)

	out, err := f.manager.TriggerCycle(context.Background(), "long_study", "manual_trigger")
	require.NoError(t, err)
	assert.Equal(t, "accepted", out["status"])

	id, _ := out["execution_id"].(string)
	require.NotEmpty(t, id)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := f.manager.GetExecution(id)
		require.True(t, ok)
		if rec.Status == "running" || rec.Status == "completed" {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("execution never reached running or completed")
}

func TestManager_WatchlistTickDispatchesFiredTriggers(t *testing.T) {
	f := newDexFixture(t)

	f.watchlist.AddPosition(collaborators.Position{PositionID: "p1", TokenSymbol: "ETH", Status: "open"})
	f.watchlist.TriggerResults["p1"] = map[string]any{
		"trigger_type": "stop_loss",
		"position_id":  "p1",
		"token_symbol": "ETH",
		"pct_change":   -0.06,
	}

	require.NoError(t, f.manager.watchlistTick(context.Background()))

	require.Len(t, f.swap.Exits, 1)
	assert.Equal(t, "p1", f.swap.Exits[0]["position_id"])
	assert.Equal(t, "stop_loss", f.swap.Exits[0]["trigger_type"])
}

func TestManager_WatchlistTickSkipsClosedPositions(t *testing.T) {
	f := newDexFixture(t)

	f.watchlist.AddPosition(collaborators.Position{PositionID: "p1", Status: "closed"})
	f.watchlist.TriggerResults["p1"] = map[string]any{"trigger_type": "stop_loss", "position_id": "p1"}

	require.NoError(t, f.manager.watchlistTick(context.Background()))
	assert.Empty(t, f.swap.Exits)
}

func TestManager_GlobalROITriggerRedirectsToCycle(t *testing.T) {
	f := newDexFixture(t)
	f.wallet.ROIResult = map[string]any{"triggered": true, "roi": 0.12}

	require.NoError(t, f.manager.watchlistTick(context.Background()))

	assert.Empty(t, f.swap.Exits, "a global ROI notification must not execute a swap exit")
	found := false
	for _, entry := range f.manager.Triggers.ListHistory(0) {
		if entry["trigger_id"] == "dex.cycle" {
			found = true
		}
	}
	assert.True(t, found, "global ROI trigger should redirect into the cycle trigger")
}

func TestManager_WalletReviewCacheHonorsTTL(t *testing.T) {
	f := newDexFixture(t)

	f.manager.cachedWalletReview(context.Background(), "0xwallet")
	f.manager.cachedWalletReview(context.Background(), "0xwallet")
	assert.Equal(t, 1, f.wallet.ReviewCalls, "second review within TTL must be served from cache")

	f.clock.Advance(2 * time.Hour)
	f.manager.cachedWalletReview(context.Background(), "0xwallet")
	assert.Equal(t, 2, f.wallet.ReviewCalls, "expired cache entry must re-run the review")
}

func TestManager_StrategyHintGatedByInterval(t *testing.T) {
	f := newDexFixture(t)

	assert.True(t, f.manager.strategyHintDue())
	assert.False(t, f.manager.strategyHintDue(), "a second hint inside the interval must be suppressed")

	f.clock.Advance(7 * time.Hour)
	assert.True(t, f.manager.strategyHintDue())
}

func TestManager_UpdateConfigAppliesCycleHoursToWorker(t *testing.T) {
	f := newDexFixture(t)

	f.manager.UpdateConfig(context.Background(), map[string]any{"cycle_hours": 1}, nil)
	assert.Equal(t, 3600, f.manager.cycleWorker.Interval())
	assert.Equal(t, 60, f.manager.cycleWorker.MinIntervalSeconds)
}

func TestManager_HistorySinkReceivesTradeOnWatchlistExit(t *testing.T) {
	var kinds []string
	f := &dexFixture{
		workforce: collaborators.NewMockWorkforce(),
		swap:      collaborators.NewMockSwapClient(),
		watchlist: collaborators.NewMockWatchlistToolkit(),
		wallet:    collaborators.NewMockWalletToolkit(),
		clock:     shared.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	m, err := NewManager(Config{
		Workforce:        f.workforce,
		SwapClient:       f.swap,
		WatchlistToolkit: f.watchlist,
		WalletToolkit:    f.wallet,
		Clock:            f.clock,
		History: func(ctx context.Context, kind string, entry map[string]any) {
			kinds = append(kinds, kind)
		},
	})
	require.NoError(t, err)

	f.watchlist.AddPosition(collaborators.Position{PositionID: "p1", TokenSymbol: "ETH", Status: "open"})
	out := m.Triggers.Run(context.Background(), "dex", "watchlist_notification", map[string]any{
		"trigger_type":  "take_profit",
		"position_id":   "p1",
		"token_symbol":  "ETH",
		"pct_change":    0.12,
		"current_price": 2240.0,
	})

	assert.Equal(t, "completed", out["status"])
	assert.Contains(t, kinds, "trades")
}
