package polymarket

import (
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline/workers"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

// marketKey extracts the feed-cache key from a raw market document, its
// "id" or "market_id" field.
func marketKey(item map[string]any) string {
	if id, ok := item["id"].(string); ok && id != "" {
		return id
	}
	if id, ok := item["market_id"].(string); ok {
		return id
	}
	return ""
}

// marketEntryBuilder stamps first_seen on first sight and always refreshes
// last_seen, preserving the caller's "exhausted" flag once mark-processed
// sets it.
func marketEntryBuilder(item, existing map[string]any, now string) map[string]any {
	firstSeen := now
	exhausted := false
	if existing != nil {
		if fs, ok := existing["first_seen"].(string); ok {
			firstSeen = fs
		}
		if ex, ok := existing["exhausted"].(bool); ok {
			exhausted = ex
		}
	}
	return map[string]any{
		"id":         marketKey(item),
		"first_seen": firstSeen,
		"last_seen":  now,
		"exhausted":  exhausted,
		"data":       item,
	}
}

// marketEntryActive rejects entries flagged exhausted, pruning them on the
// next Update call.
func marketEntryActive(entry map[string]any) bool {
	exhausted, _ := entry["exhausted"].(bool)
	return !exhausted
}

// NewFeedCache builds the feed-threshold worker for Polymarket's market
// batch trigger, wired with the market-specific key/entry/active
// functions over the generic worker primitive.
func NewFeedCache(maxCache, threshold int, clock shared.Clock) *workers.FeedCacheThresholdWorker {
	return workers.NewFeedCacheThresholdWorker(marketKey, marketEntryBuilder, marketEntryActive, maxCache, threshold, clock)
}
