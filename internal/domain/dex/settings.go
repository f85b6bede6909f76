package dex

import (
	"github.com/go-playground/validator/v10"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
)

// settingsValidator enforces the bounded-range tags on the three settings
// models below; Apply runs it against the normalized payload before
// mutating cfg, so an out-of-range field raises and leaves config
// untouched (spec.md §4.6, §7).
var settingsValidator = validator.New()

// CycleIntervalSettings is the tunable model for the "dex.cycle_interval"
// trigger.
type CycleIntervalSettings struct {
	Enabled               bool `json:"enabled"`
	CycleHours            int  `json:"cycle_hours" validate:"gte=1,lte=168"`
	TokenExplorationLimit int  `json:"token_exploration_limit" validate:"gte=1,lte=200"`
}

// WatchlistTriggerSettings is the tunable model for the "dex.watchlist"
// trigger.
type WatchlistTriggerSettings struct {
	Enabled                 bool    `json:"enabled"`
	ScanSeconds             int     `json:"scan_seconds" validate:"gte=5,lte=3600"`
	TriggerPct              float64 `json:"trigger_pct" validate:"gte=0,lte=1"`
	FastTriggerPct          float64 `json:"fast_trigger_pct" validate:"gte=0,lte=1"`
	GlobalROITriggerEnabled bool    `json:"global_roi_trigger_enabled"`
	GlobalROITriggerPct     float64 `json:"global_roi_trigger_pct" validate:"gte=0,lte=1"`
	GlobalROIFastTriggerPct float64 `json:"global_roi_fast_trigger_pct" validate:"gte=0,lte=1"`
}

// StrategyFeedbackSettings is the tunable model for the
// "dex.strategy_feedback" trigger.
type StrategyFeedbackSettings struct {
	WalletReviewCacheSeconds  int  `json:"wallet_review_cache_seconds" validate:"gte=0,lte=86400"`
	StrategyHintIntervalHours int  `json:"strategy_hint_interval_hours" validate:"gte=1,lte=168"`
	AutoEnhancementEnabled    bool `json:"auto_enhancement_enabled"`
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

// RegisterSettings registers the three DEX trigger settings specs on reg.
func RegisterSettings(reg *pipeline.SettingsRegistry) {
	reg.Register(pipeline.SettingsSpec{
		Pipeline: "dex",
		Trigger:  "cycle_interval",
		Extract: func(cfg *pipeline.ManagerConfig) (any, error) {
			process := cfg.Process
			runtime := cfg.Runtime
			return CycleIntervalSettings{
				Enabled:               asBool(runtime, "cycle_enabled", false),
				CycleHours:            asInt(process, "cycle_hours", 4),
				TokenExplorationLimit: asInt(process, "token_exploration_limit", 20),
			}, nil
		},
		Apply: func(cfg *pipeline.ManagerConfig, payload map[string]any) (map[string]any, error) {
			data := CycleIntervalSettings{
				Enabled:               asBool(payload, "enabled", false),
				CycleHours:            asInt(payload, "cycle_hours", 4),
				TokenExplorationLimit: asInt(payload, "token_exploration_limit", 20),
			}
			if err := settingsValidator.Struct(data); err != nil {
				return nil, err
			}
			cfg.Process["cycle_hours"] = data.CycleHours
			cfg.Process["token_exploration_limit"] = data.TokenExplorationLimit
			cfg.Runtime["cycle_enabled"] = data.Enabled
			return map[string]any{
				"enabled":                 data.Enabled,
				"cycle_hours":             data.CycleHours,
				"token_exploration_limit": data.TokenExplorationLimit,
			}, nil
		},
	})

	reg.Register(pipeline.SettingsSpec{
		Pipeline: "dex",
		Trigger:  "watchlist",
		Extract: func(cfg *pipeline.ManagerConfig) (any, error) {
			process := cfg.Process
			runtime := cfg.Runtime
			return WatchlistTriggerSettings{
				Enabled:                 asBool(runtime, "watchlist_enabled", false),
				ScanSeconds:             asInt(process, "watchlist_scan_seconds", 60),
				TriggerPct:              asFloat(process, "watchlist_trigger_pct", 0.05),
				FastTriggerPct:          asFloat(process, "watchlist_fast_trigger_pct", 0.10),
				GlobalROITriggerEnabled: asBool(process, "watchlist_global_roi_trigger_enabled", true),
				GlobalROITriggerPct:     asFloat(process, "watchlist_global_roi_trigger_pct", 0.04),
				GlobalROIFastTriggerPct: asFloat(process, "watchlist_global_roi_fast_trigger_pct", 0.08),
			}, nil
		},
		Apply: func(cfg *pipeline.ManagerConfig, payload map[string]any) (map[string]any, error) {
			data := WatchlistTriggerSettings{
				Enabled:                 asBool(payload, "enabled", false),
				ScanSeconds:             asInt(payload, "scan_seconds", 60),
				TriggerPct:              asFloat(payload, "trigger_pct", 0.05),
				FastTriggerPct:          asFloat(payload, "fast_trigger_pct", 0.10),
				GlobalROITriggerEnabled: asBool(payload, "global_roi_trigger_enabled", true),
				GlobalROITriggerPct:     asFloat(payload, "global_roi_trigger_pct", 0.04),
				GlobalROIFastTriggerPct: asFloat(payload, "global_roi_fast_trigger_pct", 0.08),
			}
			if err := settingsValidator.Struct(data); err != nil {
				return nil, err
			}
			process := cfg.Process
			runtime := cfg.Runtime
			process["watchlist_scan_seconds"] = data.ScanSeconds
			process["watchlist_trigger_pct"] = data.TriggerPct
			process["watchlist_fast_trigger_pct"] = data.FastTriggerPct
			process["watchlist_global_roi_trigger_enabled"] = data.GlobalROITriggerEnabled
			process["watchlist_global_roi_trigger_pct"] = data.GlobalROITriggerPct
			process["watchlist_global_roi_fast_trigger_pct"] = data.GlobalROIFastTriggerPct
			runtime["watchlist_enabled"] = data.Enabled
			return map[string]any{
				"enabled":                     data.Enabled,
				"scan_seconds":                data.ScanSeconds,
				"trigger_pct":                 data.TriggerPct,
				"fast_trigger_pct":            data.FastTriggerPct,
				"global_roi_trigger_enabled":  data.GlobalROITriggerEnabled,
				"global_roi_trigger_pct":      data.GlobalROITriggerPct,
				"global_roi_fast_trigger_pct": data.GlobalROIFastTriggerPct,
			}, nil
		},
	})

	reg.Register(pipeline.SettingsSpec{
		Pipeline: "dex",
		Trigger:  "strategy_feedback",
		Extract: func(cfg *pipeline.ManagerConfig) (any, error) {
			process := cfg.Process
			return StrategyFeedbackSettings{
				WalletReviewCacheSeconds:  asInt(process, "wallet_review_cache_seconds", 3600),
				StrategyHintIntervalHours: asInt(process, "strategy_hint_interval_hours", 6),
				AutoEnhancementEnabled:    asBool(process, "auto_enhancement_enabled", true),
			}, nil
		},
		Apply: func(cfg *pipeline.ManagerConfig, payload map[string]any) (map[string]any, error) {
			data := StrategyFeedbackSettings{
				WalletReviewCacheSeconds:  asInt(payload, "wallet_review_cache_seconds", 3600),
				StrategyHintIntervalHours: asInt(payload, "strategy_hint_interval_hours", 6),
				AutoEnhancementEnabled:    asBool(payload, "auto_enhancement_enabled", true),
			}
			if err := settingsValidator.Struct(data); err != nil {
				return nil, err
			}
			process := cfg.Process
			process["wallet_review_cache_seconds"] = data.WalletReviewCacheSeconds
			process["strategy_hint_interval_hours"] = data.StrategyHintIntervalHours
			process["auto_enhancement_enabled"] = data.AutoEnhancementEnabled
			return map[string]any{
				"wallet_review_cache_seconds":  data.WalletReviewCacheSeconds,
				"strategy_hint_interval_hours": data.StrategyHintIntervalHours,
				"auto_enhancement_enabled":     data.AutoEnhancementEnabled,
			}, nil
		},
	})
}
