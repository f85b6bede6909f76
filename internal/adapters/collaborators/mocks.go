package collaborators

import (
	"context"
	"sync"
)

// MockWorkforce is an in-memory Runner used by tests and by pipelinectl
// when no real workforce is configured; it echoes the task back as its
// own result rather than doing any LLM-backed work.
type MockWorkforce struct {
	mu    sync.Mutex
	Calls []WorkforceTask
}

func NewMockWorkforce() *MockWorkforce {
	return &MockWorkforce{}
}

func (m *MockWorkforce) Run(ctx context.Context, task WorkforceTask) (map[string]any, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, task)
	m.mu.Unlock()
	return map[string]any{
		"status":    "completed",
		"task_id":   task.ID,
		"task_type": task.TaskType,
	}, nil
}

// MockSwapClient records watchlist exits instead of executing a real swap.
// QuoteRate is the flat in->out conversion every quote uses.
type MockSwapClient struct {
	mu            sync.Mutex
	Exits         []map[string]any
	Registrations []map[string]any
	QuoteRate     float64
}

func NewMockSwapClient() *MockSwapClient {
	return &MockSwapClient{QuoteRate: 1.0}
}

func (m *MockSwapClient) QuoteExactIn(ctx context.Context, tokenIn, tokenOut string, amountIn float64, fee int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return amountIn * m.QuoteRate, nil
}

func (m *MockSwapClient) ExecuteWatchlistExit(ctx context.Context, positionID, triggerType string) (map[string]any, error) {
	entry := map[string]any{"position_id": positionID, "trigger_type": triggerType, "status": "executed", "tx_hash": "0xmock"}
	m.mu.Lock()
	m.Exits = append(m.Exits, entry)
	m.mu.Unlock()
	return entry, nil
}

func (m *MockSwapClient) RegisterStopLossTakeProfit(ctx context.Context, positionID string, stopLossPct, takeProfitPct float64) (map[string]any, error) {
	entry := map[string]any{
		"position_id":     positionID,
		"stop_loss_pct":   stopLossPct,
		"take_profit_pct": takeProfitPct,
	}
	m.mu.Lock()
	m.Registrations = append(m.Registrations, entry)
	m.mu.Unlock()
	return map[string]any{"success": true, "position": entry}, nil
}

// MockWatchlistToolkit is an in-memory position book. TriggerResults maps
// position id to the notification EvaluateTriggers returns for it; absent
// ids evaluate to no trigger.
type MockWatchlistToolkit struct {
	mu             sync.Mutex
	Positions      map[string]Position
	TriggerResults map[string]map[string]any
}

func NewMockWatchlistToolkit() *MockWatchlistToolkit {
	return &MockWatchlistToolkit{
		Positions:      map[string]Position{},
		TriggerResults: map[string]map[string]any{},
	}
}

func (m *MockWatchlistToolkit) EvaluateTriggers(ctx context.Context, position Position, triggerPct float64) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TriggerResults[position.PositionID], nil
}

func (m *MockWatchlistToolkit) AddPosition(p Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Positions[p.PositionID] = p
}

func (m *MockWatchlistToolkit) ListPositions(ctx context.Context, status string) ([]Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, 0, len(m.Positions))
	for _, p := range m.Positions {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockWatchlistToolkit) ClosePosition(ctx context.Context, positionID, closeReason string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Positions[positionID]
	if !ok {
		return map[string]any{"success": false, "reason": "not_found"}, nil
	}
	p.Status = "closed"
	m.Positions[positionID] = p
	return map[string]any{
		"success": true,
		"position": map[string]any{
			"position_id":  p.PositionID,
			"token_symbol": p.TokenSymbol,
			"quantity":     p.Quantity,
			"close_reason": closeReason,
		},
	}, nil
}

// MockWalletToolkit returns canned wallet state, adequate for driving the
// wallet review and global ROI pipeline stages in tests.
type MockWalletToolkit struct {
	mu           sync.Mutex
	ReviewResult map[string]any
	Feedback     map[string]any
	GlobalState  map[string]any
	ROIResult    map[string]any
	ReviewCalls  int
}

func NewMockWalletToolkit() *MockWalletToolkit {
	return &MockWalletToolkit{
		ReviewResult: map[string]any{"status": "ok"},
		Feedback:     map[string]any{"hint": "hold"},
		GlobalState:  map[string]any{"total_value_usd": 0.0},
		ROIResult:    map[string]any{"triggered": false, "roi": 0.0},
	}
}

func (m *MockWalletToolkit) ReviewWallet(ctx context.Context, walletAddress string) (map[string]any, error) {
	m.mu.Lock()
	m.ReviewCalls++
	m.mu.Unlock()
	return m.ReviewResult, nil
}

func (m *MockWalletToolkit) GetWalletFeedback(ctx context.Context, walletAddress string) (map[string]any, error) {
	return m.Feedback, nil
}

func (m *MockWalletToolkit) GetGlobalWalletState(ctx context.Context) (map[string]any, error) {
	return m.GlobalState, nil
}

func (m *MockWalletToolkit) EvaluateGlobalROI(ctx context.Context) (map[string]any, error) {
	return m.ROIResult, nil
}

// MockPolymarketClient returns a fixed slice of markets and echoes orders.
type MockPolymarketClient struct {
	Markets []map[string]any
}

func NewMockPolymarketClient() *MockPolymarketClient {
	return &MockPolymarketClient{}
}

func (m *MockPolymarketClient) FetchLatestMarkets(ctx context.Context, limit int) ([]map[string]any, error) {
	if limit > 0 && limit < len(m.Markets) {
		return m.Markets[:limit], nil
	}
	return m.Markets, nil
}

func (m *MockPolymarketClient) PlaceOrder(ctx context.Context, marketID string, order map[string]any) (map[string]any, error) {
	return map[string]any{"status": "placed", "market_id": marketID}, nil
}
