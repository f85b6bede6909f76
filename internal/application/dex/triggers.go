package dex

import (
	"context"
	"time"

	domdex "github.com/andrescamacho/pipeline-go/internal/domain/dex"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
)

// cycleTrigger runs the single cycle_pipeline task flow. The hub trigger
// type it passes through defaults to "cycle" but can be overridden by the
// caller (args["trigger_type"]) — the global ROI redirect uses this to
// stamp "watchlist_global_roi_trigger" onto the underlying hub run while
// still reusing this trigger's resolver.
type cycleTrigger struct{ m *Manager }

func (t *cycleTrigger) ID() string { return "dex.cycle" }

func (t *cycleTrigger) Resolve(ctx context.Context, args map[string]any) (map[string]any, error) {
	triggerType, _ := args["trigger_type"].(string)
	if triggerType == "" {
		triggerType = "cycle"
	}

	results, err := t.m.Hub.Run(ctx, []string{"cycle_pipeline"}, triggerType, t.m.Flags(), args)
	if err != nil {
		return nil, err
	}
	t.m.recordTaskResults(ctx, results)
	return flattenSingle(results, "cycle_pipeline"), nil
}

// watchlistReviewTrigger runs watchlist_review_pipeline directly, unless
// the caller is in fast mode, in which case it redirects to the cycle
// trigger (spec.md §4.3).
type watchlistReviewTrigger struct{ m *Manager }

func (t *watchlistReviewTrigger) ID() string { return "dex.watchlist_review" }

func (t *watchlistReviewTrigger) Resolve(ctx context.Context, args map[string]any) (map[string]any, error) {
	mode, _ := args["mode"].(string)
	fast, _ := args["fast"].(bool)
	if mode == string(domdex.ReviewModeFastDecision) {
		fast = true
	}

	if fast {
		redirectArgs := map[string]any{
			"mode":   string(domdex.ReviewModeFastDecision),
			"reason": "watchlist_fast_trigger",
		}
		for k, v := range args {
			if _, has := redirectArgs[k]; !has {
				redirectArgs[k] = v
			}
		}
		return t.m.Triggers.Run(ctx, "dex", "cycle", redirectArgs), nil
	}

	if mode == "" {
		mode = string(domdex.ReviewModeLongStudy)
	}
	runArgs := map[string]any{}
	for k, v := range args {
		runArgs[k] = v
	}
	runArgs["mode"] = mode
	runArgs["trigger_pct"] = t.m.TraderConfig().WatchlistTriggerPct

	results, err := t.m.Hub.Run(ctx, []string{"watchlist_review_pipeline"}, "watchlist_review", t.m.Flags(), runArgs)
	if err != nil {
		return nil, err
	}
	t.m.recordTaskResults(ctx, results)
	return flattenSingle(results, "watchlist_review_pipeline"), nil
}

// watchlistNotificationTrigger handles per-position and global-ROI
// notifications raised by the external watchlist component (spec.md §4.3
// scenarios 2 and 3).
type watchlistNotificationTrigger struct{ m *Manager }

func (t *watchlistNotificationTrigger) ID() string { return "dex.watchlist_notification" }

func (t *watchlistNotificationTrigger) Resolve(ctx context.Context, args map[string]any) (map[string]any, error) {
	notificationType, _ := args["trigger_type"].(string)

	if notificationType == "global_roi" {
		mode, _ := args["mode"].(string)
		if mode == "" {
			mode = string(domdex.ReviewModeFastDecision)
		}
		return t.m.Triggers.Run(ctx, "dex", "cycle", map[string]any{
			"mode":         mode,
			"reason":       "watchlist_global_roi_trigger",
			"trigger_type": "watchlist_global_roi_trigger",
			"roi_delta":    args["roi_delta"],
		}), nil
	}

	positionID, _ := args["position_id"].(string)
	pctChange, _ := args["pct_change"].(float64)
	tokenSymbol, _ := args["token_symbol"].(string)
	currentPrice, _ := args["current_price"].(float64)

	var exitResult map[string]any
	if t.m.SwapClient != nil && positionID != "" {
		r, err := t.m.SwapClient.ExecuteWatchlistExit(ctx, positionID, notificationType)
		if err != nil {
			return map[string]any{"status": "failed", "error": err.Error()}, nil
		}
		exitResult = r
	}

	var closeResult map[string]any
	if t.m.WatchlistToolkit != nil && positionID != "" {
		r, err := t.m.WatchlistToolkit.ClosePosition(ctx, positionID, notificationType)
		if err != nil {
			return map[string]any{"status": "failed", "error": err.Error()}, nil
		}
		closeResult = r
	}

	if exitResult != nil {
		exitValue := currentPrice
		if t.m.SwapClient != nil && tokenSymbol != "" && currentPrice > 0 {
			if quoted, err := t.m.SwapClient.QuoteExactIn(ctx, tokenSymbol, "USDC", currentPrice, 3000); err == nil {
				exitValue = quoted
			}
		}
		t.m.appendHistory(ctx, "trades", map[string]any{
			"position_id":  positionID,
			"trigger_type": notificationType,
			"token_symbol": tokenSymbol,
			"pct_change":   pctChange,
			"exit_value":   exitValue,
			"tx_hash":      exitResult["tx_hash"],
			"closed_at":    t.m.clock.Now().Format(time.RFC3339),
		})
	}

	tc := t.m.TraderConfig()
	fastMode := string(domdex.ReviewModeLongStudy)
	if absFloat(pctChange) >= tc.WatchlistFastTriggerPct {
		fastMode = string(domdex.ReviewModeFastDecision)
	}

	followOn := t.m.Triggers.Run(ctx, "dex", "watchlist_review", map[string]any{
		"mode":           fastMode,
		"reason":         "watchlist_notification",
		"position_id":    positionID,
		"wallet_address": args["wallet_address"],
	})

	return map[string]any{
		"status":       "completed",
		"exit":         exitResult,
		"close":        closeResult,
		"follow_on":    followOn,
		"review_mode":  fastMode,
		"trigger_type": notificationType,
	}, nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// flattenSingle unwraps the single-task RunResult list a cycle/watchlist
// trigger produces into a flat result document (spec.md: "DEX cycle → runs
// only cycle_pipeline, then flattens its result").
func flattenSingle(results []pipeline.RunResult, taskID string) map[string]any {
	for _, r := range results {
		if r.TaskID != taskID {
			continue
		}
		out := map[string]any{"status": r.Status}
		for k, v := range r.Output {
			out[k] = v
		}
		if r.Reason != "" {
			out["reason"] = r.Reason
		}
		if r.Err != nil {
			out["error"] = r.Err.Error()
		}
		return out
	}
	return map[string]any{"status": "skipped", "reason": "task_not_found"}
}
