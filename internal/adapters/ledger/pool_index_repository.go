package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PoolIndexRepository maintains per-pair and per-symbol lookups over DEX
// pools, a durable complement to the Redis-backed "uviswap:pools:…" keys
// for structured queries (e.g. "every pool quoting this pair").
type PoolIndexRepository struct {
	db *gorm.DB
}

func NewPoolIndexRepository(db *gorm.DB) *PoolIndexRepository {
	return &PoolIndexRepository{db: db}
}

// Upsert records or updates one pool's pair/symbol index entry.
func (r *PoolIndexRepository) Upsert(ctx context.Context, poolAddress, pair, symbol string) error {
	model := PoolIndexModel{
		PoolAddress: poolAddress,
		Pair:        pair,
		Symbol:      symbol,
		UpdatedAt:   time.Now().UTC(),
	}
	result := r.db.WithContext(ctx).
		Where("pool_address = ?", poolAddress).
		Assign(model).
		FirstOrCreate(&model)
	if result.Error != nil {
		return fmt.Errorf("upsert pool index %s: %w", poolAddress, result.Error)
	}
	return nil
}

// ByPair returns every pool indexed under pair.
func (r *PoolIndexRepository) ByPair(ctx context.Context, pair string) ([]PoolIndexModel, error) {
	var models []PoolIndexModel
	if err := r.db.WithContext(ctx).Where("pair = ?", pair).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("pool index by pair %s: %w", pair, err)
	}
	return models, nil
}

// BySymbol returns every pool indexed under symbol.
func (r *PoolIndexRepository) BySymbol(ctx context.Context, symbol string) ([]PoolIndexModel, error) {
	var models []PoolIndexModel
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("pool index by symbol %s: %w", symbol, err)
	}
	return models, nil
}
