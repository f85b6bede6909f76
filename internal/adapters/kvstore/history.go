package kvstore

import "context"

// AppendCapped pushes value onto the right of key and trims the list to
// its most recent cap entries, the push+trim idiom every capped history
// list in the orchestration core uses (cycles, trades, tasks, logs).
func AppendCapped(ctx context.Context, store Store, key, value string, cap int) error {
	if err := store.RPush(ctx, key, value); err != nil {
		return err
	}
	if cap <= 0 {
		return nil
	}
	return store.LTrim(ctx, key, -int64(cap), -1)
}

// PrependCapped pushes value onto the left of key and trims the list to
// its first cap entries, the newest-first layout the log lists use so a
// bounded LRange from index zero always reads the most recent entries.
func PrependCapped(ctx context.Context, store Store, key, value string, cap int) error {
	if err := store.LPush(ctx, key, value); err != nil {
		return err
	}
	if cap <= 0 {
		return nil
	}
	return store.LTrim(ctx, key, 0, int64(cap)-1)
}
