package dex_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/adapters/collaborators"
	"github.com/andrescamacho/pipeline-go/internal/domain/dex"
)

func TestCyclePipelineTask_SubmitsAllStagesChained(t *testing.T) {
	workforce := collaborators.NewMockWorkforce()
	task := &dex.CyclePipelineTask{
		Workforce:     workforce,
		WalletToolkit: collaborators.NewMockWalletToolkit(),
	}

	out, err := task.Execute(context.Background(), map[string]any{"mode": "long_study"})
	require.NoError(t, err)

	stages, _ := out["stages"].(map[string]any)
	require.Len(t, stages, 8)

	// Eight stage submissions plus the root task.
	require.Len(t, workforce.Calls, 9)

	// Every stage after the first depends on its predecessor.
	var prevID string
	for _, call := range workforce.Calls[:8] {
		if prevID != "" {
			require.Equal(t, []string{prevID}, call.Dependencies)
		}
		prevID = call.ID
	}

	root := workforce.Calls[8]
	assert.Equal(t, "cycle_root", root.TaskType)
	assert.Len(t, root.Subtasks, 8)
}

func TestCyclePipelineTask_SkipsStrategyHintWhenCacheFresh(t *testing.T) {
	workforce := collaborators.NewMockWorkforce()
	task := &dex.CyclePipelineTask{
		Workforce:     workforce,
		WalletToolkit: collaborators.NewMockWalletToolkit(),
	}

	out, err := task.Execute(context.Background(), map[string]any{
		"mode":                  "fast_decision",
		"include_strategy_hint": false,
	})
	require.NoError(t, err)

	stages, _ := out["stages"].(map[string]any)
	hint, _ := stages["strategy_hint"].(map[string]any)
	require.NotNil(t, hint)
	assert.Equal(t, "skipped", hint["status"])
	assert.Equal(t, "hint_cache_fresh", hint["reason"])

	// Seven stage submissions plus the root; no strategy_hint task built.
	assert.Len(t, workforce.Calls, 8)
	for _, call := range workforce.Calls {
		assert.NotEqual(t, "strategy_hint", call.TaskType)
	}
}

func TestWatchlistReviewTask_RefreshesStopLossTakeProfit(t *testing.T) {
	workforce := collaborators.NewMockWorkforce()
	swap := collaborators.NewMockSwapClient()
	watchlist := collaborators.NewMockWatchlistToolkit()
	watchlist.AddPosition(collaborators.Position{PositionID: "p1", Status: "open"})
	watchlist.AddPosition(collaborators.Position{PositionID: "p2", Status: "open"})

	task := &dex.WatchlistReviewPipelineTask{
		Workforce:        workforce,
		WalletToolkit:    collaborators.NewMockWalletToolkit(),
		WatchlistToolkit: watchlist,
		SwapClient:       swap,
	}

	out, err := task.Execute(context.Background(), map[string]any{
		"mode":        "long_study",
		"trigger_pct": 0.05,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, out["sl_tp_refreshed"])
	require.Len(t, swap.Registrations, 2)
	assert.Equal(t, 0.05, swap.Registrations[0]["stop_loss_pct"])
}

func TestWatchlistReviewTask_NoSwapClientSkipsRegistration(t *testing.T) {
	task := &dex.WatchlistReviewPipelineTask{
		Workforce:        collaborators.NewMockWorkforce(),
		WalletToolkit:    collaborators.NewMockWalletToolkit(),
		WatchlistToolkit: collaborators.NewMockWatchlistToolkit(),
	}

	out, err := task.Execute(context.Background(), map[string]any{"trigger_pct": 0.05})
	require.NoError(t, err)
	assert.Equal(t, 0, out["sl_tp_refreshed"])
}
