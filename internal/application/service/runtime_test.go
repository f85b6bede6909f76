package service_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/adapters/kvstore"
	"github.com/andrescamacho/pipeline-go/internal/application/service"
	"github.com/andrescamacho/pipeline-go/internal/infrastructure/database"
)

func newTestRuntime(t *testing.T) (*service.Runtime, kvstore.Store) {
	t.Helper()

	// Boot reads and writes fixed relative config paths; keep them inside
	// a scratch working directory.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	mr := miniredis.RunT(t)
	store := kvstore.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	db, err := database.NewTestConnection()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	rt, err := service.Boot(context.Background(), service.Options{KV: store, DB: db})
	require.NoError(t, err)
	t.Cleanup(rt.Shutdown)
	return rt, store
}

func TestBoot_WithEmptyStoresFallsBackToDefaults(t *testing.T) {
	rt, _ := newTestRuntime(t)

	cfg := rt.Dex.GetConfig()
	assert.Equal(t, 4, cfg.Process["cycle_hours"])
	assert.Equal(t, false, cfg.Runtime["auto_start_on_boot"])

	assert.NotEmpty(t, rt.ListTriggerSpecs())
}

func TestUpdateTriggerSettings_PersistsToKVAndFilesystem(t *testing.T) {
	rt, store := newTestRuntime(t)
	ctx := context.Background()

	updated, err := rt.UpdateTriggerSettings(ctx, "dex", "cycle_interval", map[string]any{
		"enabled":     true,
		"cycle_hours": 8,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, updated["cycle_hours"])

	raw, ok, err := store.Get(ctx, "dex:config")
	require.NoError(t, err)
	require.True(t, ok)

	var persisted map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	process, _ := persisted["process"].(map[string]any)
	assert.Equal(t, float64(8), process["cycle_hours"])

	_, err = os.Stat("config/dex_manager_config.json")
	assert.NoError(t, err, "config must be mirrored to the filesystem path")
}

func TestUpdateTriggerSettings_InvalidPayloadLeavesConfigUntouched(t *testing.T) {
	rt, _ := newTestRuntime(t)

	_, err := rt.UpdateTriggerSettings(context.Background(), "dex", "cycle_interval", map[string]any{
		"cycle_hours": 999,
	})
	require.Error(t, err)

	cfg := rt.Dex.GetConfig()
	assert.Equal(t, 4, cfg.Process["cycle_hours"])
}

func TestManagerEvents_MirroredToKVLogsAndMetrics(t *testing.T) {
	rt, store := newTestRuntime(t)
	ctx := context.Background()

	rt.Dex.UpdateConfig(ctx, map[string]any{"cycle_hours": 6}, nil)
	rt.DexEvents.Append("INFO", "probe", nil)

	logs, err := store.LRange(ctx, "dex:logs", 0, -1)
	require.NoError(t, err)
	assert.NotEmpty(t, logs)

	metrics, err := store.HGetAll(ctx, "dex:metrics")
	require.NoError(t, err)
	assert.Contains(t, metrics, "events_INFO")
}

func TestLaunchExecution_MirrorsRecordIntoLedger(t *testing.T) {
	rt, _ := newTestRuntime(t)
	ctx := context.Background()

	out, err := rt.LaunchExecution(ctx, "long_study", "manual_trigger")
	require.NoError(t, err)
	id, _ := out["execution_id"].(string)
	require.NotEmpty(t, id)

	model, err := rt.ExecutionLedger.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, model)
	assert.Equal(t, "dex", model.Manager)
}

func TestIndexPool_WritesKVAndDurableIndex(t *testing.T) {
	rt, store := newTestRuntime(t)
	ctx := context.Background()

	require.NoError(t, rt.IndexPool(ctx, "0xpool1", "USDC/WETH", "WETH"))

	kvPools, err := kvstore.PoolsByPair(ctx, store, "USDC/WETH")
	require.NoError(t, err)
	assert.Equal(t, []string{"0xpool1"}, kvPools)

	rows, err := rt.PoolIndex.ByPair(ctx, "USDC/WETH")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "0xpool1", rows[0].PoolAddress)
}
