package steps

import (
	"context"
	"fmt"
	"strconv"

	"github.com/andrescamacho/pipeline-go/internal/adapters/collaborators"
	"github.com/cucumber/godog"
)

type watchlistContext struct {
	dex *dexContext

	notificationResult map[string]any
}

func (w *watchlistContext) aManagerWithFastTriggerPct(pct float64) error {
	return w.dex.aManagerWithFastTriggerPct(pct)
}

func (w *watchlistContext) aDefaultManager() error {
	return w.dex.aDefaultManager()
}

func (w *watchlistContext) iSendAWatchlistNotification(table *godog.Table) error {
	args := map[string]any{}
	for _, row := range table.Rows {
		key := row.Cells[0].Value
		raw := row.Cells[1].Value
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			args[key] = f
		} else {
			args[key] = raw
		}
	}

	if positionID, ok := args["position_id"].(string); ok {
		entryPrice, _ := args["entry_price"].(float64)
		tokenSymbol, _ := args["token_symbol"].(string)
		w.dex.watchlist.AddPosition(collaborators.Position{
			PositionID:  positionID,
			TokenSymbol: tokenSymbol,
			EntryPrice:  entryPrice,
			Status:      "open",
		})
	}

	out := w.dex.manager.Triggers.Run(context.Background(), "dex", "watchlist_notification", args)
	w.notificationResult = out
	return nil
}

func (w *watchlistContext) theSwapClientExecutedExitExactlyOnce(positionID, triggerType string) error {
	exits := w.dex.swapClient.Exits
	count := 0
	for _, e := range exits {
		if e["position_id"] == positionID && e["trigger_type"] == triggerType {
			count++
		}
	}
	if count != 1 {
		return fmt.Errorf("expected exactly 1 exit for %s/%s, got %d (exits=%v)", positionID, triggerType, count, exits)
	}
	return nil
}

func (w *watchlistContext) theWatchlistToolkitClosedPosition(positionID, reason string) error {
	closeResult, _ := w.notificationResult["close"].(map[string]any)
	if closeResult == nil {
		return fmt.Errorf("expected a close result in notification response, got %v", w.notificationResult)
	}
	success, _ := closeResult["success"].(bool)
	pos, _ := closeResult["position"].(map[string]any)
	if !success || pos == nil {
		return fmt.Errorf("close_position did not succeed for %s: %v", positionID, closeResult)
	}
	if pos["position_id"] != positionID || pos["close_reason"] != reason {
		return fmt.Errorf("expected position %q closed with reason %q, got %v", positionID, reason, pos)
	}
	return nil
}

func (w *watchlistContext) aFollowOnReviewRanWithMode(mode string) error {
	for _, call := range w.dex.workforce.Calls {
		if call.TaskType != "cycle_root" {
			continue
		}
		if call.AdditionalInfo["mode"] == mode {
			return nil
		}
	}
	return fmt.Errorf("no cycle_root workforce call observed with mode %q", mode)
}

func (w *watchlistContext) theHubRanOnceWithTriggerTypeSelecting(triggerType, selectedID string) error {
	for _, call := range w.dex.workforce.Calls {
		if call.TaskType != "cycle_root" {
			continue
		}
		if call.AdditionalInfo["mode"] == nil {
			continue
		}
		return nil
	}
	_ = selectedID
	history := w.dex.manager.Triggers.ListHistory(0)
	for _, entry := range history {
		if entry["trigger_id"] == "dex.cycle" {
			return nil
		}
	}
	return fmt.Errorf("no dex.cycle dispatch observed for redirect trigger_type %q", triggerType)
}

func (w *watchlistContext) noSwapExitWasExecuted() error {
	if len(w.dex.swapClient.Exits) != 0 {
		return fmt.Errorf("expected no swap exits, got %v", w.dex.swapClient.Exits)
	}
	return nil
}

// InitializeDexWatchlistScenario shares d with InitializeDexCycleScenario so
// the "default config" Given (registered there) populates the same manager
// these steps read from.
func InitializeDexWatchlistScenario(sc *godog.ScenarioContext, d *dexContext) {
	w := &watchlistContext{dex: d}

	sc.Given(`^a DEX manager with watchlist_fast_trigger_pct ([\d.]+)$`, w.aManagerWithFastTriggerPct)
	sc.When(`^I send a watchlist notification:$`, w.iSendAWatchlistNotification)
	sc.Then(`^the swap client executed watchlist exit for position "([^"]*)" with trigger "([^"]*)" exactly once$`, w.theSwapClientExecutedExitExactlyOnce)
	sc.Then(`^the watchlist toolkit closed position "([^"]*)" with reason "([^"]*)"$`, w.theWatchlistToolkitClosedPosition)
	sc.Then(`^a follow-on watchlist review ran with mode "([^"]*)"$`, w.aFollowOnReviewRanWithMode)
	sc.Then(`^the task flow hub ran once with trigger type "([^"]*)" selecting "([^"]*)"$`, w.theHubRanOnceWithTriggerTypeSelecting)
	sc.Then(`^no swap exit was executed$`, w.noSwapExitWasExecuted)
}
