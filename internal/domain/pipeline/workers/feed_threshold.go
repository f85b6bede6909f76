package workers

import (
	"sort"
	"time"

	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

// FeedCacheThresholdWorker maintains a bounded, keyed cache of feed items
// (e.g. RSS-discovered markets) and gates downstream processing on the
// cache reaching a configured size threshold.
type FeedCacheThresholdWorker struct {
	KeyFn         func(item map[string]any) string
	EntryBuilder  func(item map[string]any, existing map[string]any, now string) map[string]any
	IsEntryActive func(entry map[string]any) bool
	MaxCache      int
	Threshold     int
	Clock         shared.Clock

	cache map[string]map[string]any
}

// NewFeedCacheThresholdWorker returns a worker with an empty cache.
func NewFeedCacheThresholdWorker(
	keyFn func(item map[string]any) string,
	entryBuilder func(item, existing map[string]any, now string) map[string]any,
	isEntryActive func(entry map[string]any) bool,
	maxCache, threshold int,
	clock shared.Clock,
) *FeedCacheThresholdWorker {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if maxCache <= 0 {
		maxCache = 500
	}
	if threshold <= 0 {
		threshold = 25
	}
	return &FeedCacheThresholdWorker{
		KeyFn:         keyFn,
		EntryBuilder:  entryBuilder,
		IsEntryActive: isEntryActive,
		MaxCache:      maxCache,
		Threshold:     threshold,
		Clock:         clock,
		cache:         map[string]map[string]any{},
	}
}

// Load replaces the cache wholesale, used to restore a persisted cache.
func (w *FeedCacheThresholdWorker) Load(cache map[string]map[string]any) {
	replacement := map[string]map[string]any{}
	for k, v := range cache {
		replacement[k] = v
	}
	w.cache = replacement
}

// Update merges items into the cache (overwriting existing entries via
// EntryBuilder), drops entries IsEntryActive rejects, then evicts the
// oldest-by-last-seen entries once the cache exceeds MaxCache.
func (w *FeedCacheThresholdWorker) Update(items []map[string]any) map[string]map[string]any {
	now := w.Clock.Now().Format(time.RFC3339Nano)

	for _, item := range items {
		key := w.KeyFn(item)
		if key == "" {
			continue
		}
		existing := w.cache[key]
		w.cache[key] = w.EntryBuilder(item, existing, now)
	}

	for k, v := range w.cache {
		if !w.IsEntryActive(v) {
			delete(w.cache, k)
		}
	}

	if len(w.cache) > w.MaxCache {
		type kv struct {
			key   string
			entry map[string]any
		}
		ordered := make([]kv, 0, len(w.cache))
		for k, v := range w.cache {
			ordered = append(ordered, kv{k, v})
		}
		sort.Slice(ordered, func(i, j int) bool {
			return lastSeen(ordered[i].entry) < lastSeen(ordered[j].entry)
		})
		keep := ordered[len(ordered)-w.MaxCache:]
		replacement := map[string]map[string]any{}
		for _, item := range keep {
			replacement[item.key] = item.entry
		}
		w.cache = replacement
	}

	return w.cache
}

func lastSeen(entry map[string]any) string {
	if v, ok := entry["last_seen"].(string); ok {
		return v
	}
	return ""
}

// Snapshot returns a copy of the cache keyed by entry id, the shape Load
// accepts, so the owning manager can mirror it to disk between updates.
func (w *FeedCacheThresholdWorker) Snapshot() map[string]map[string]any {
	out := make(map[string]map[string]any, len(w.cache))
	for k, v := range w.cache {
		out[k] = v
	}
	return out
}

// PendingItems returns every cached entry, order unspecified.
func (w *FeedCacheThresholdWorker) PendingItems() []map[string]any {
	out := make([]map[string]any, 0, len(w.cache))
	for _, v := range w.cache {
		out = append(out, v)
	}
	return out
}

// Ready reports whether the cache has reached Threshold entries.
func (w *FeedCacheThresholdWorker) Ready() bool {
	return len(w.cache) >= w.Threshold
}

// MarkProcessed flags the given items exhausted in the cache, then runs an
// empty Update to re-prune anything IsEntryActive now rejects.
func (w *FeedCacheThresholdWorker) MarkProcessed(items []map[string]any, exhaustedField string) {
	if exhaustedField == "" {
		exhaustedField = "exhausted"
	}
	for _, item := range items {
		key := w.KeyFn(item)
		if key == "" {
			continue
		}
		if entry, ok := w.cache[key]; ok {
			entry[exhaustedField] = true
		}
	}
	w.Update(nil)
}
