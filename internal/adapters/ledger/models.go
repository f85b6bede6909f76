// Package ledger persists execution history and the DEX pool index beyond
// the in-memory capped rings, using gorm over SQLite.
package ledger

import "time"

// ExecutionModel is the durable row for one tracked execution.
type ExecutionModel struct {
	ExecutionID string `gorm:"primaryKey"`
	Manager     string `gorm:"index"`
	Mode        string
	Reason      string
	Stage       string
	Status      string `gorm:"index"`
	Result      string
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ExecutionModel) TableName() string { return "executions" }

// PoolIndexModel is one DEX pool's per-pair/per-symbol index entry.
type PoolIndexModel struct {
	PoolAddress string `gorm:"primaryKey"`
	Pair        string `gorm:"index"`
	Symbol      string `gorm:"index"`
	UpdatedAt   time.Time
}

func (PoolIndexModel) TableName() string { return "pool_index" }
