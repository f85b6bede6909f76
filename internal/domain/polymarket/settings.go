package polymarket

import (
	"github.com/go-playground/validator/v10"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
)

// settingsValidator enforces the bounded-range tags on the settings models
// below; Apply runs it against the normalized payload before mutating cfg,
// so an out-of-range field raises and leaves config untouched (spec.md
// §4.6, §7).
var settingsValidator = validator.New()

// IntervalSettings is the tunable model for the "polymarket.interval"
// trigger: the scan cadence and interval-throttle window.
type IntervalSettings struct {
	ScanIntervalSeconds int `json:"scan_interval_seconds" validate:"gte=5,lte=86400"`
}

// SignalSettings is the tunable model for the "polymarket.signal" trigger.
type SignalSettings struct {
	MinConfidence float64 `json:"min_confidence" validate:"gte=0,lte=1"`
}

// MarketSettings is the tunable model for the "polymarket.market" trigger:
// the feed-threshold gate and the daily trade cap.
type MarketSettings struct {
	ReviewThreshold int `json:"review_threshold" validate:"gte=1,lte=5000"`
	MaxCache        int `json:"max_cache" validate:"gte=1,lte=10000"`
	MaxTradesPerDay int `json:"max_trades_per_day" validate:"gte=0,lte=10000"`
	FetchLimit      int `json:"fetch_limit" validate:"gte=1,lte=1000"`
}

// HybridSettings is the tunable model for the "polymarket.hybrid" trigger,
// which toggles whether the interval and feed-threshold workers run
// concurrently under one HybridWorker lifecycle.
type HybridSettings struct {
	Enabled bool `json:"enabled"`
}

func asInt(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func asFloat(m map[string]any, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

func asBool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

// RegisterSettings registers the four Polymarket trigger settings specs
// on reg.
func RegisterSettings(reg *pipeline.SettingsRegistry) {
	reg.Register(pipeline.SettingsSpec{
		Pipeline: "polymarket",
		Trigger:  "interval",
		Extract: func(cfg *pipeline.ManagerConfig) (any, error) {
			return IntervalSettings{
				ScanIntervalSeconds: asInt(cfg.Process, "scan_interval_seconds", 300),
			}, nil
		},
		Apply: func(cfg *pipeline.ManagerConfig, payload map[string]any) (map[string]any, error) {
			data := IntervalSettings{ScanIntervalSeconds: asInt(payload, "scan_interval_seconds", 300)}
			if err := settingsValidator.Struct(data); err != nil {
				return nil, err
			}
			cfg.Process["scan_interval_seconds"] = data.ScanIntervalSeconds
			return map[string]any{"scan_interval_seconds": data.ScanIntervalSeconds}, nil
		},
	})

	reg.Register(pipeline.SettingsSpec{
		Pipeline: "polymarket",
		Trigger:  "signal",
		Extract: func(cfg *pipeline.ManagerConfig) (any, error) {
			return SignalSettings{
				MinConfidence: asFloat(cfg.TriggerConfig, "signal_min_confidence", 0.6),
			}, nil
		},
		Apply: func(cfg *pipeline.ManagerConfig, payload map[string]any) (map[string]any, error) {
			data := SignalSettings{MinConfidence: asFloat(payload, "min_confidence", 0.6)}
			if err := settingsValidator.Struct(data); err != nil {
				return nil, err
			}
			cfg.TriggerConfig["signal_min_confidence"] = data.MinConfidence
			return map[string]any{"min_confidence": data.MinConfidence}, nil
		},
	})

	reg.Register(pipeline.SettingsSpec{
		Pipeline: "polymarket",
		Trigger:  "market",
		Extract: func(cfg *pipeline.ManagerConfig) (any, error) {
			return MarketSettings{
				ReviewThreshold: asInt(cfg.Process, "review_threshold", 25),
				MaxCache:        asInt(cfg.Process, "max_cache", 500),
				MaxTradesPerDay: asInt(cfg.Process, "max_trades_per_day", 20),
				FetchLimit:      asInt(cfg.Process, "fetch_limit", 100),
			}, nil
		},
		Apply: func(cfg *pipeline.ManagerConfig, payload map[string]any) (map[string]any, error) {
			data := MarketSettings{
				ReviewThreshold: asInt(payload, "review_threshold", 25),
				MaxCache:        asInt(payload, "max_cache", 500),
				MaxTradesPerDay: asInt(payload, "max_trades_per_day", 20),
				FetchLimit:      asInt(payload, "fetch_limit", 100),
			}
			if err := settingsValidator.Struct(data); err != nil {
				return nil, err
			}
			cfg.Process["review_threshold"] = data.ReviewThreshold
			cfg.Process["max_cache"] = data.MaxCache
			cfg.Process["max_trades_per_day"] = data.MaxTradesPerDay
			cfg.Process["fetch_limit"] = data.FetchLimit
			return map[string]any{
				"review_threshold":   data.ReviewThreshold,
				"max_cache":          data.MaxCache,
				"max_trades_per_day": data.MaxTradesPerDay,
				"fetch_limit":        data.FetchLimit,
			}, nil
		},
	})

	reg.Register(pipeline.SettingsSpec{
		Pipeline: "polymarket",
		Trigger:  "hybrid",
		Extract: func(cfg *pipeline.ManagerConfig) (any, error) {
			return HybridSettings{Enabled: asBool(cfg.Runtime, "hybrid_enabled", false)}, nil
		},
		Apply: func(cfg *pipeline.ManagerConfig, payload map[string]any) (map[string]any, error) {
			v := asBool(payload, "enabled", false)
			cfg.Runtime["hybrid_enabled"] = v
			return map[string]any{"enabled": v}, nil
		},
	})
}
