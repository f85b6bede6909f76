package polymarket

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/andrescamacho/pipeline-go/internal/adapters/collaborators"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
)

// BatchOrchestrationTask builds a market-fetch -> analysis -> decision
// tree and submits it to the workforce. When execution is disabled (daily
// trade cap reached and the trigger is not manual), the decision subtask
// is still built and submitted, but flagged execution_enabled=false so
// the workforce only analyzes and never places an order.
type BatchOrchestrationTask struct {
	Workforce collaborators.Workforce
}

func (t *BatchOrchestrationTask) ID() string             { return "batch_orchestration" }
func (t *BatchOrchestrationTask) Pipeline() string       { return "polymarket" }
func (t *BatchOrchestrationTask) SystemName() string     { return "polymarket_trader" }
func (t *BatchOrchestrationTask) TriggerTypes() []string { return nil }
func (t *BatchOrchestrationTask) Dependencies() []string { return nil }

// Execute expects input["markets"] ([]map[string]any) and
// input["execution_enabled"] (bool, default true).
func (t *BatchOrchestrationTask) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	markets, _ := input["markets"].([]map[string]any)
	if len(markets) == 0 {
		return map[string]any{"status": "skipped", "reason": "no_markets"}, nil
	}

	executionEnabled := true
	if v, ok := input["execution_enabled"].(bool); ok {
		executionEnabled = v
	}

	rootID := "batch-" + uuid.NewString()
	fetchID := rootID + "-fetch"
	analysisID := rootID + "-analysis"
	decisionID := rootID + "-decision"

	fetchTask := collaborators.WorkforceTask{
		ID:       fetchID,
		ParentID: rootID,
		TaskType: "market_fetch",
		Content:  fmt.Sprintf("fetched %d candidate markets", len(markets)),
		AdditionalInfo: map[string]any{
			"market_count": len(markets),
		},
	}
	fetchResult, err := collaborators.ExecuteTask(ctx, t.Workforce, fetchTask)
	if err != nil {
		return nil, fmt.Errorf("market fetch stage: %w", err)
	}

	analysisTask := collaborators.WorkforceTask{
		ID:           analysisID,
		ParentID:     rootID,
		TaskType:     "market_analysis",
		Content:      "analyze candidate markets",
		Dependencies: []string{fetchID},
	}
	analysisResult, err := collaborators.ExecuteTask(ctx, t.Workforce, analysisTask)
	if err != nil {
		return nil, fmt.Errorf("market analysis stage: %w", err)
	}

	decisionTaskType := "market_decision"
	if !executionEnabled {
		decisionTaskType = "market_decision_execution_disabled"
	}
	decisionTask := collaborators.WorkforceTask{
		ID:           decisionID,
		ParentID:     rootID,
		TaskType:     decisionTaskType,
		Content:      "decide whether to place orders on analyzed markets",
		Dependencies: []string{analysisID},
		AdditionalInfo: map[string]any{
			"execution_enabled": executionEnabled,
		},
	}
	decisionResult, err := collaborators.ExecuteTask(ctx, t.Workforce, decisionTask)
	if err != nil {
		return nil, fmt.Errorf("market decision stage: %w", err)
	}

	root := collaborators.WorkforceTask{
		ID:       rootID,
		TaskType: "batch_orchestration_root",
		Content:  "polymarket batch orchestration",
		Subtasks: []string{fetchID, analysisID, decisionID},
	}
	rootResult, err := collaborators.ExecuteTask(ctx, t.Workforce, root)
	if err != nil {
		return nil, fmt.Errorf("batch orchestration root: %w", err)
	}

	return map[string]any{
		"root":              rootResult,
		"fetch":             fetchResult,
		"analysis":          analysisResult,
		"decision":          decisionResult,
		"execution_enabled": executionEnabled,
		"market_count":      len(markets),
	}, nil
}

var _ pipeline.Task = (*BatchOrchestrationTask)(nil)
