package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
)

// ExecutionLedgerRepository durably mirrors ExecutionTracker records,
// adapted from the teacher's gorm-backed repository idiom: context-aware
// methods, fmt.Errorf("...: %w", err) wrapping, conditional field updates.
type ExecutionLedgerRepository struct {
	db *gorm.DB
}

// NewExecutionLedgerRepository wraps an already-migrated *gorm.DB.
func NewExecutionLedgerRepository(db *gorm.DB) *ExecutionLedgerRepository {
	return &ExecutionLedgerRepository{db: db}
}

// AutoMigrate creates the executions and pool_index tables if missing.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ExecutionModel{}, &PoolIndexModel{})
}

// Record upserts the durable mirror of one execution record.
func (r *ExecutionLedgerRepository) Record(ctx context.Context, manager string, rec pipeline.ExecutionRecord) error {
	model := ExecutionModel{
		ExecutionID: rec.ExecutionID,
		Manager:     manager,
		Mode:        rec.Mode,
		Reason:      rec.Reason,
		Status:      rec.Status,
		UpdatedAt:   time.Now().UTC(),
	}
	if rec.Stage != nil {
		model.Stage = *rec.Stage
	}
	if rec.Error != nil {
		model.Error = *rec.Error
	}

	result := r.db.WithContext(ctx).
		Where("execution_id = ?", rec.ExecutionID).
		Assign(model).
		FirstOrCreate(&model)
	if result.Error != nil {
		return fmt.Errorf("record execution %s: %w", rec.ExecutionID, result.Error)
	}
	return nil
}

// Get returns the durable record for one execution id.
func (r *ExecutionLedgerRepository) Get(ctx context.Context, executionID string) (*ExecutionModel, error) {
	var model ExecutionModel
	err := r.db.WithContext(ctx).Where("execution_id = ?", executionID).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get execution %s: %w", executionID, err)
	}
	return &model, nil
}

// ListByManager returns the most recent limit executions for one manager,
// newest first.
func (r *ExecutionLedgerRepository) ListByManager(ctx context.Context, manager string, limit int) ([]ExecutionModel, error) {
	var models []ExecutionModel
	q := r.db.WithContext(ctx).Where("manager = ?", manager).Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list executions for %s: %w", manager, err)
	}
	return models, nil
}
