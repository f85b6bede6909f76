// Package dex adapts the generic pipeline primitives to the DEX trader:
// its task tree, its triggers and their settings, and the task flow
// executors that make up the full decision cycle.
package dex

// ReviewMode selects how deeply the DEX trader studies a candidate before
// acting on it.
type ReviewMode string

const (
	ReviewModeLongStudy    ReviewMode = "long_study"
	ReviewModeFastDecision ReviewMode = "fast_decision"
)

// TraderConfig mirrors the original dataclass of tunable DEX trader knobs,
// with the defaults the settings package applies when none are configured.
type TraderConfig struct {
	CycleHours                       int `validate:"gte=1,lte=168"`
	WatchlistEnabled                 bool
	WatchlistScanSeconds             int     `validate:"gte=5,lte=3600"`
	WatchlistTriggerPct              float64 `validate:"gte=0,lte=1"`
	WatchlistFastTriggerPct          float64 `validate:"gte=0,lte=1"`
	WatchlistGlobalROITriggerEnabled bool
	WatchlistGlobalROITriggerPct     float64 `validate:"gte=0,lte=1"`
	WatchlistGlobalROIFastTriggerPct float64 `validate:"gte=0,lte=1"`
	TokenExplorationLimit            int     `validate:"gte=1,lte=200"`
	WalletReviewCacheSeconds         int     `validate:"gte=0,lte=86400"`
	StrategyHintIntervalHours        int     `validate:"gte=1,lte=168"`
	AutoEnhancementEnabled           bool
}

// DefaultTraderConfig returns the baseline DEX trader configuration.
func DefaultTraderConfig() TraderConfig {
	return TraderConfig{
		CycleHours:                       4,
		WatchlistEnabled:                 false,
		WatchlistScanSeconds:             60,
		WatchlistTriggerPct:              0.05,
		WatchlistFastTriggerPct:          0.10,
		WatchlistGlobalROITriggerEnabled: true,
		WatchlistGlobalROITriggerPct:     0.04,
		WatchlistGlobalROIFastTriggerPct: 0.08,
		TokenExplorationLimit:            20,
		WalletReviewCacheSeconds:         3600,
		StrategyHintIntervalHours:        6,
		AutoEnhancementEnabled:           true,
	}
}
