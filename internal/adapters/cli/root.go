// Package cli implements the pipelinectl command-line tool using the
// cobra framework. Each command boots its own short-lived Runtime against
// the configured key-value store and database rather than talking to a
// running daemon over a socket, since every Runtime method is already
// concurrency-safe and idempotent to construct.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/andrescamacho/pipeline-go/internal/adapters/kvstore"
	"github.com/andrescamacho/pipeline-go/internal/application/service"
	"github.com/andrescamacho/pipeline-go/internal/infrastructure/config"
	"github.com/andrescamacho/pipeline-go/internal/infrastructure/database"
)

var configFile string

// NewRootCommand creates the root command for pipelinectl.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pipelinectl",
		Short: "pipelinectl - operate the DEX and Polymarket pipeline orchestration core",
		Long: `pipelinectl reads the same config.yaml as pipelined and talks to the
same key-value store and SQLite ledger. Each command boots its own runtime
in this process: settings changes are persisted to the shared store, but
executions and task flows are those of the command's own runtime, not of a
running pipelined process.

Examples:
  pipelinectl cycle trigger --mode long_study --reason manual
  pipelinectl executions list --limit 10
  pipelinectl config get dex cycle_interval
  pipelinectl flows list dex
  pipelinectl health`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"path to config.yaml (empty searches default paths)")

	rootCmd.AddCommand(newCycleCommand())
	rootCmd.AddCommand(newExecutionsCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newFlowsCommand())
	rootCmd.AddCommand(newHealthCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootRuntime loads config.yaml and constructs a Runtime, without
// auto-starting either manager's worker loops.
func bootRuntime(ctx context.Context) (*service.Runtime, func(), error) {
	cfg := config.LoadConfigOrDefault(configFile)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		database.Close(db)
		return nil, nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.KVStore.Address,
		Password: cfg.KVStore.Password,
		DB:       cfg.KVStore.DB,
	})
	store := kvstore.NewRedisStore(rdb)

	rt, err := service.Boot(ctx, service.Options{KV: store, DB: db})
	if err != nil {
		database.Close(db)
		return nil, nil, fmt.Errorf("boot runtime: %w", err)
	}

	cleanup := func() {
		database.Close(db)
	}
	return rt, cleanup, nil
}
