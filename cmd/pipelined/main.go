package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/andrescamacho/pipeline-go/internal/adapters/kvstore"
	"github.com/andrescamacho/pipeline-go/internal/application/service"
	"github.com/andrescamacho/pipeline-go/internal/infrastructure/config"
	"github.com/andrescamacho/pipeline-go/internal/infrastructure/database"
	"github.com/andrescamacho/pipeline-go/internal/infrastructure/pidlock"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty searches default paths)")
	force := flag.Bool("force", false, "Remove a stale PID file and start anyway")
	flag.Parse()

	fmt.Println("pipelined v0.1.0")
	fmt.Println("================")

	fmt.Println("Loading configuration...")
	cfg := config.MustLoadConfig(*configPath)

	fmt.Printf("Acquiring PID file lock: %s\n", cfg.Daemon.PIDFile)
	lock := pidlock.New(cfg.Daemon.PIDFile)
	if err := lock.Acquire(); err != nil {
		if *force {
			_ = os.Remove(cfg.Daemon.PIDFile)
			if err := lock.Acquire(); err != nil {
				log.Fatalf("failed to acquire PID file lock after --force: %v", err)
			}
		} else {
			log.Fatalf("failed to acquire PID file lock: %v\nuse --force to clear a stale lock", err)
		}
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Printf("warning: failed to release PID file: %v", err)
		}
	}()
	fmt.Println("PID file lock acquired")

	if err := run(cfg); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run(cfg *config.Config) error {
	fmt.Printf("Connecting to sqlite database at %s...\n", cfg.Database.Path)
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto-migrate database: %w", err)
	}
	fmt.Println("Database connected and migrated")

	fmt.Printf("Connecting to key-value store at %s...\n", cfg.KVStore.Address)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.KVStore.Address,
		Password: cfg.KVStore.Password,
		DB:       cfg.KVStore.DB,
	})
	store := kvstore.NewRedisStore(rdb)
	fmt.Println("Key-value store client initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := service.Boot(ctx, service.Options{
		KV: store,
		DB: db,
	})
	if err != nil {
		return fmt.Errorf("boot runtime: %w", err)
	}

	if cfg.Daemon.AutoStartDex {
		rt.Dex.Start(ctx, true, true)
		fmt.Println("DEX manager started (cycle + watchlist loops)")
	}
	if cfg.Daemon.AutoStartPolymarket {
		rt.Polymarket.Start(ctx)
		fmt.Println("Polymarket manager started (scan loop)")
	}

	fmt.Println("\npipelined is ready")
	fmt.Println("Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	rt.Shutdown()
	fmt.Println("pipelined stopped")
	return nil
}
