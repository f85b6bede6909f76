package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/adapters/kvstore"
)

func TestIndexPool_ResolvesByPairAndSymbol(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, kvstore.IndexPool(ctx, store, "0xpool1", "USDC/WETH", "WETH"))
	require.NoError(t, kvstore.IndexPool(ctx, store, "0xpool2", "USDC/WETH", "USDC"))

	byPair, err := kvstore.PoolsByPair(ctx, store, "USDC/WETH")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0xpool1", "0xpool2"}, byPair)

	bySymbol, err := kvstore.PoolsBySymbol(ctx, store, "WETH")
	require.NoError(t, err)
	assert.Equal(t, []string{"0xpool1"}, bySymbol)
}

func TestPrependCapped_KeepsNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, kvstore.PrependCapped(ctx, store, "log", string(rune('a'+i)), 3))
	}

	items, err := store.LRange(ctx, "log", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d", "c"}, items)
}
