package kvstore

import (
	"context"
	"encoding/json"
)

const poolIndexPrefix = "uviswap:pools:"

type poolIndexEntry struct {
	PoolAddress string `json:"pool_address"`
	Pair        string `json:"pair"`
	Symbol      string `json:"symbol"`
}

// IndexPool records a pool under its per-pair and per-symbol keys, so a
// pair or symbol lookup resolves straight to the pool without a scan.
func IndexPool(ctx context.Context, store Store, poolAddress, pair, symbol string) error {
	encoded, err := json.Marshal(poolIndexEntry{PoolAddress: poolAddress, Pair: pair, Symbol: symbol})
	if err != nil {
		return err
	}
	if err := store.HSet(ctx, poolIndexPrefix+"pair:"+pair, poolAddress, string(encoded)); err != nil {
		return err
	}
	return store.HSet(ctx, poolIndexPrefix+"symbol:"+symbol, poolAddress, string(encoded))
}

// PoolsByPair returns every indexed pool address for one pair.
func PoolsByPair(ctx context.Context, store Store, pair string) ([]string, error) {
	entries, err := store.HGetAll(ctx, poolIndexPrefix+"pair:"+pair)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for addr := range entries {
		out = append(out, addr)
	}
	return out, nil
}

// PoolsBySymbol returns every indexed pool address quoting one symbol.
func PoolsBySymbol(ctx context.Context, store Store, symbol string) ([]string, error) {
	entries, err := store.HGetAll(ctx, poolIndexPrefix+"symbol:"+symbol)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for addr := range entries {
		out = append(out, addr)
	}
	return out, nil
}
