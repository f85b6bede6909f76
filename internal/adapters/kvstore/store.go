// Package kvstore defines the Redis-shaped key-value boundary the
// orchestration core persists config, logs, metrics and history through,
// plus a Redis-backed implementation.
package kvstore

import "context"

// Store is the operation set spec.md requires: plain get/set/del,
// list push/range/trim, hash set/get/getall/del/incrby, and expire.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error

	LPush(ctx context.Context, key string, values ...string) error
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error

	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key, field string) error
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)

	Expire(ctx context.Context, key string, seconds int) error
}
