package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/adapters/ledger"
)

func TestPoolIndexRepository_UpsertThenQuery(t *testing.T) {
	repo := ledger.NewPoolIndexRepository(newTestLedgerDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "0xpool1", "USDC/WETH", "WETH"))
	require.NoError(t, repo.Upsert(ctx, "0xpool2", "USDC/WETH", "USDC"))

	byPair, err := repo.ByPair(ctx, "USDC/WETH")
	require.NoError(t, err)
	assert.Len(t, byPair, 2)

	bySymbol, err := repo.BySymbol(ctx, "WETH")
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
	assert.Equal(t, "0xpool1", bySymbol[0].PoolAddress)
}

func TestPoolIndexRepository_UpsertUpdatesExistingRow(t *testing.T) {
	repo := ledger.NewPoolIndexRepository(newTestLedgerDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "0xpool1", "USDC/WETH", "WETH"))
	require.NoError(t, repo.Upsert(ctx, "0xpool1", "DAI/WETH", "WETH"))

	byPair, err := repo.ByPair(ctx, "USDC/WETH")
	require.NoError(t, err)
	assert.Len(t, byPair, 0)

	byNewPair, err := repo.ByPair(ctx, "DAI/WETH")
	require.NoError(t, err)
	assert.Len(t, byNewPair, 1)
}
