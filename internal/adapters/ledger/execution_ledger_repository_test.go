package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/andrescamacho/pipeline-go/internal/adapters/ledger"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
)

func newTestLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, ledger.AutoMigrate(db))
	return db
}

func TestExecutionLedgerRepository_RecordThenGet(t *testing.T) {
	repo := ledger.NewExecutionLedgerRepository(newTestLedgerDB(t))
	ctx := context.Background()

	stage := "scan"
	require.NoError(t, repo.Record(ctx, "dex", pipeline.ExecutionRecord{
		ExecutionID: "exec-1",
		Mode:        "manual",
		Reason:      "test",
		Stage:       &stage,
		Status:      "running",
	}))

	model, err := repo.Get(ctx, "exec-1")
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, "dex", model.Manager)
	assert.Equal(t, "running", model.Status)
	assert.Equal(t, "scan", model.Stage)
}

func TestExecutionLedgerRepository_RecordUpsertsExistingRow(t *testing.T) {
	repo := ledger.NewExecutionLedgerRepository(newTestLedgerDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, "dex", pipeline.ExecutionRecord{
		ExecutionID: "exec-1",
		Status:      "running",
	}))
	require.NoError(t, repo.Record(ctx, "dex", pipeline.ExecutionRecord{
		ExecutionID: "exec-1",
		Status:      "completed",
	}))

	models, err := repo.ListByManager(ctx, "dex", 0)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "completed", models[0].Status)
}

func TestExecutionLedgerRepository_GetUnknownReturnsNilNoError(t *testing.T) {
	repo := ledger.NewExecutionLedgerRepository(newTestLedgerDB(t))
	model, err := repo.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, model)
}

func TestExecutionLedgerRepository_ListByManagerRespectsLimit(t *testing.T) {
	repo := ledger.NewExecutionLedgerRepository(newTestLedgerDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, "dex", pipeline.ExecutionRecord{
			ExecutionID: string(rune('a' + i)),
			Status:      "completed",
		}))
	}

	models, err := repo.ListByManager(ctx, "dex", 2)
	require.NoError(t, err)
	assert.Len(t, models, 2)
}
