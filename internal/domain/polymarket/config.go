// Package polymarket adapts the generic pipeline primitives to the
// Polymarket prediction-market manager: its feed cache, its triggers and
// their settings, and the batch-orchestration task tree.
package polymarket

// MarketConfig mirrors the tunable Polymarket scan knobs, with the
// defaults the settings package applies when none are configured.
type MarketConfig struct {
	ScanIntervalSeconds int     `validate:"gte=5,lte=86400"`
	ReviewThreshold     int     `validate:"gte=1,lte=5000"`
	MaxCache            int     `validate:"gte=1,lte=10000"`
	MaxTradesPerDay     int     `validate:"gte=0,lte=10000"`
	FetchLimit          int     `validate:"gte=1,lte=1000"`
	SignalMinConfidence float64 `validate:"gte=0,lte=1"`
}

// DefaultMarketConfig returns the baseline Polymarket scan configuration.
func DefaultMarketConfig() MarketConfig {
	return MarketConfig{
		ScanIntervalSeconds: 300,
		ReviewThreshold:     25,
		MaxCache:            500,
		MaxTradesPerDay:     20,
		FetchLimit:          100,
		SignalMinConfidence: 0.6,
	}
}
