package dex

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/andrescamacho/pipeline-go/internal/adapters/collaborators"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
)

// cycleStages lists the eight sub-stages cycle_pipeline threads through the
// workforce, in dependency order: each stage depends on the one before it.
var cycleStages = []string{
	"wallet_review",
	"token_exploration",
	"news_sentiment",
	"trend_analysis",
	"decision_gateway",
	"position_update_review",
	"auto_enhancement",
	"strategy_hint",
}

// StageMarker is implemented by anything that can record an in-flight
// execution's current stage, satisfied by *pipeline.ExecutionTracker.
type StageMarker interface {
	SetStage(executionID, stage string)
}

// CyclePipelineTask is the DEX trader's full decision cycle: it builds a
// root workforce task with the eight cycle stages as a dependency-linked
// subtask chain and submits the whole tree to the workforce.
type CyclePipelineTask struct {
	Workforce        collaborators.Workforce
	WalletToolkit    collaborators.WalletToolkit
	WatchlistToolkit collaborators.WatchlistToolkit
	Tracker          StageMarker
}

func (t *CyclePipelineTask) ID() string             { return "cycle_pipeline" }
func (t *CyclePipelineTask) Pipeline() string       { return "dex" }
func (t *CyclePipelineTask) SystemName() string     { return "dex_trader" }
func (t *CyclePipelineTask) TriggerTypes() []string { return nil }
func (t *CyclePipelineTask) Dependencies() []string { return nil }

// Execute builds the eight-stage cycle tree and submits it to the
// workforce, stamping an execution stage marker between stages when the
// caller threaded an execution_id through input. The wallet_review stage
// carries the caller's cached review document when one is present, and the
// strategy_hint stage is skipped when the caller says its last hint is
// still fresh (input["include_strategy_hint"] == false).
func (t *CyclePipelineTask) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	executionID, _ := input["execution_id"].(string)
	mode, _ := input["mode"].(string)
	if mode == "" {
		mode = string(ReviewModeLongStudy)
	}

	includeStrategyHint := true
	if v, ok := input["include_strategy_hint"].(bool); ok {
		includeStrategyHint = v
	}

	var globalState map[string]any
	if t.WalletToolkit != nil {
		gs, err := t.WalletToolkit.GetGlobalWalletState(ctx)
		if err != nil {
			return nil, fmt.Errorf("global wallet state: %w", err)
		}
		globalState = gs
	}

	rootID := "cycle-" + uuid.NewString()
	root := collaborators.WorkforceTask{
		ID:       rootID,
		Content:  fmt.Sprintf("run dex trading cycle (mode=%s)", mode),
		TaskType: "cycle_root",
		AdditionalInfo: map[string]any{
			"mode":         mode,
			"wallet_state": globalState,
		},
	}

	var prevID string
	subtaskIDs := make([]string, 0, len(cycleStages))
	stageResults := map[string]any{}

	for _, stage := range cycleStages {
		if stage == "strategy_hint" && !includeStrategyHint {
			stageResults[stage] = map[string]any{"status": "skipped", "reason": "hint_cache_fresh"}
			continue
		}

		if t.Tracker != nil && executionID != "" {
			t.Tracker.SetStage(executionID, stage)
		}

		sub := collaborators.WorkforceTask{
			ID:       rootID + "-" + stage,
			Content:  stage,
			TaskType: stage,
			ParentID: rootID,
		}
		if prevID != "" {
			sub.Dependencies = []string{prevID}
		}
		if stage == "wallet_review" {
			if review, ok := input["wallet_review"].(map[string]any); ok {
				sub.AdditionalInfo = map[string]any{"cached_review": review}
			}
		}
		subtaskIDs = append(subtaskIDs, sub.ID)
		prevID = sub.ID

		result, err := collaborators.ExecuteTask(ctx, t.Workforce, sub)
		if err != nil {
			return nil, fmt.Errorf("cycle stage %s: %w", stage, err)
		}
		stageResults[stage] = result
	}

	root.Subtasks = subtaskIDs
	rootResult, err := collaborators.ExecuteTask(ctx, t.Workforce, root)
	if err != nil {
		return nil, fmt.Errorf("cycle root: %w", err)
	}

	return map[string]any{
		"root":   rootResult,
		"stages": stageResults,
		"mode":   mode,
	}, nil
}

// WatchlistReviewPipelineTask reviews open positions and the owning
// wallet without executing any trade, used by the fast and long-study
// watchlist review paths. When a swap client is wired, it refreshes each
// open position's stop-loss/take-profit registration against the
// configured trigger percentage as part of the review.
type WatchlistReviewPipelineTask struct {
	Workforce        collaborators.Workforce
	WalletToolkit    collaborators.WalletToolkit
	WatchlistToolkit collaborators.WatchlistToolkit
	SwapClient       collaborators.SwapClient
}

func (t *WatchlistReviewPipelineTask) ID() string             { return "watchlist_review_pipeline" }
func (t *WatchlistReviewPipelineTask) Pipeline() string       { return "dex" }
func (t *WatchlistReviewPipelineTask) SystemName() string     { return "dex_trader" }
func (t *WatchlistReviewPipelineTask) TriggerTypes() []string { return nil }
func (t *WatchlistReviewPipelineTask) Dependencies() []string { return nil }

func (t *WatchlistReviewPipelineTask) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	mode, _ := input["mode"].(string)
	if mode == "" {
		mode = string(ReviewModeFastDecision)
	}

	walletAddress, _ := input["wallet_address"].(string)
	var walletReview map[string]any
	var walletFeedback map[string]any
	if t.WalletToolkit != nil {
		review, err := t.WalletToolkit.ReviewWallet(ctx, walletAddress)
		if err != nil {
			return nil, fmt.Errorf("wallet review: %w", err)
		}
		walletReview = review

		feedback, err := t.WalletToolkit.GetWalletFeedback(ctx, walletAddress)
		if err != nil {
			return nil, fmt.Errorf("wallet feedback: %w", err)
		}
		walletFeedback = feedback
	}

	var positions []collaborators.Position
	if t.WatchlistToolkit != nil {
		p, err := t.WatchlistToolkit.ListPositions(ctx, "open")
		if err != nil {
			return nil, fmt.Errorf("list positions: %w", err)
		}
		positions = p
	}

	triggerPct, _ := input["trigger_pct"].(float64)
	registered := 0
	if t.SwapClient != nil && triggerPct > 0 {
		for _, p := range positions {
			if _, err := t.SwapClient.RegisterStopLossTakeProfit(ctx, p.PositionID, triggerPct, triggerPct); err != nil {
				return nil, fmt.Errorf("register stop loss/take profit for %s: %w", p.PositionID, err)
			}
			registered++
		}
	}

	task := collaborators.WorkforceTask{
		ID:       "watchlist-review-" + uuid.NewString(),
		Content:  fmt.Sprintf("review watchlist positions (mode=%s)", mode),
		TaskType: "watchlist_review",
		AdditionalInfo: map[string]any{
			"mode":            mode,
			"open_positions":  len(positions),
			"wallet_review":   walletReview,
			"wallet_feedback": walletFeedback,
		},
	}
	result, err := collaborators.ExecuteTask(ctx, t.Workforce, task)
	if err != nil {
		return nil, fmt.Errorf("watchlist review submission: %w", err)
	}

	return map[string]any{
		"mode":            mode,
		"open_positions":  len(positions),
		"sl_tp_refreshed": registered,
		"result":          result,
	}, nil
}

var (
	_ pipeline.Task = (*CyclePipelineTask)(nil)
	_ pipeline.Task = (*WatchlistReviewPipelineTask)(nil)
)
