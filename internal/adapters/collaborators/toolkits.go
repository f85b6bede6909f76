package collaborators

import "context"

// SwapClient is the on-chain DEX swap/quote boundary. Only the shape the
// orchestration core needs is exposed here; quoting and execution
// internals are out of scope.
type SwapClient interface {
	QuoteExactIn(ctx context.Context, tokenIn, tokenOut string, amountIn float64, fee int) (float64, error)
	ExecuteWatchlistExit(ctx context.Context, positionID, triggerType string) (map[string]any, error)
	RegisterStopLossTakeProfit(ctx context.Context, positionID string, stopLossPct, takeProfitPct float64) (map[string]any, error)
}

// Position is one open or closed watchlist entry.
type Position struct {
	PositionID  string
	TokenSymbol string
	Quantity    float64
	EntryPrice  float64
	Status      string
}

// WatchlistToolkit tracks open DEX positions and their lifecycle.
// EvaluateTriggers compares one position against its configured stop-loss
// and take-profit thresholds and returns a notification payload (nil when
// nothing fired) the manager forwards to the watchlist_notification
// trigger.
type WatchlistToolkit interface {
	ListPositions(ctx context.Context, status string) ([]Position, error)
	ClosePosition(ctx context.Context, positionID, closeReason string) (map[string]any, error)
	EvaluateTriggers(ctx context.Context, position Position, triggerPct float64) (map[string]any, error)
}

// WalletToolkit reports wallet-level state used by the review stage and the
// global ROI evaluation.
type WalletToolkit interface {
	ReviewWallet(ctx context.Context, walletAddress string) (map[string]any, error)
	GetWalletFeedback(ctx context.Context, walletAddress string) (map[string]any, error)
	GetGlobalWalletState(ctx context.Context) (map[string]any, error)
	EvaluateGlobalROI(ctx context.Context) (map[string]any, error)
}

// PolymarketClient is the Polymarket REST/feed boundary: fetching latest
// markets for the batch orchestration task and placing orders from the
// decision stage.
type PolymarketClient interface {
	FetchLatestMarkets(ctx context.Context, limit int) ([]map[string]any, error)
	PlaceOrder(ctx context.Context, marketID string, order map[string]any) (map[string]any, error)
}
