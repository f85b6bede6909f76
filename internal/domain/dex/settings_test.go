package dex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/domain/dex"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
)

func newDexSettingsRegistry() *pipeline.SettingsRegistry {
	reg := pipeline.NewSettingsRegistry()
	dex.RegisterSettings(reg)
	return reg
}

func TestDexSettings_ApplyThenExtractRoundTrips(t *testing.T) {
	reg := newDexSettingsRegistry()
	cfg := pipeline.NewManagerConfig()

	_, err := reg.Update("dex", "cycle_interval", cfg, map[string]any{
		"enabled":                 true,
		"cycle_hours":             12,
		"token_exploration_limit": 50,
	})
	require.NoError(t, err)

	model, err := reg.Get("dex", "cycle_interval", cfg)
	require.NoError(t, err)

	settings, ok := model.(dex.CycleIntervalSettings)
	require.True(t, ok)
	assert.True(t, settings.Enabled)
	assert.Equal(t, 12, settings.CycleHours)
	assert.Equal(t, 50, settings.TokenExplorationLimit)
}

func TestDexSettings_CycleIntervalRejectsOutOfRangeHours(t *testing.T) {
	reg := newDexSettingsRegistry()
	cfg := pipeline.NewManagerConfig()
	cfg.Process["cycle_hours"] = 4

	_, err := reg.Update("dex", "cycle_interval", cfg, map[string]any{
		"enabled":     true,
		"cycle_hours": 999,
	})
	require.Error(t, err)
	assert.Equal(t, 4, cfg.Process["cycle_hours"], "config must be left untouched on a validation error")
}

func TestDexSettings_WatchlistRejectsOutOfRangePct(t *testing.T) {
	reg := newDexSettingsRegistry()
	cfg := pipeline.NewManagerConfig()

	_, err := reg.Update("dex", "watchlist", cfg, map[string]any{
		"trigger_pct": 1.5,
	})
	require.Error(t, err)
	_, present := cfg.Process["watchlist_trigger_pct"]
	assert.False(t, present, "invalid payload must not mutate config")
}

func TestDexSettings_StrategyFeedbackAppliesValidPayload(t *testing.T) {
	reg := newDexSettingsRegistry()
	cfg := pipeline.NewManagerConfig()

	out, err := reg.Update("dex", "strategy_feedback", cfg, map[string]any{
		"wallet_review_cache_seconds":  1800,
		"strategy_hint_interval_hours": 12,
		"auto_enhancement_enabled":     false,
	})
	require.NoError(t, err)
	assert.Equal(t, 1800, out["wallet_review_cache_seconds"])
	assert.Equal(t, 1800, cfg.Process["wallet_review_cache_seconds"])
	assert.Equal(t, false, cfg.Process["auto_enhancement_enabled"])
}

func TestDexSettings_UnknownTriggerReturnsNotFound(t *testing.T) {
	reg := newDexSettingsRegistry()
	cfg := pipeline.NewManagerConfig()

	_, err := reg.Get("dex", "does_not_exist", cfg)
	require.Error(t, err)
}
