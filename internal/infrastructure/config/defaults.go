package config

import "time"

// SetDefaults sets default values for all configuration fields.
func SetDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "pipeline.db"
	}

	if cfg.KVStore.Address == "" {
		cfg.KVStore.Address = "localhost:6379"
	}

	if cfg.Daemon.Address == "" {
		cfg.Daemon.Address = "localhost:50060"
	}
	if cfg.Daemon.PIDFile == "" {
		cfg.Daemon.PIDFile = "/tmp/pipelined.pid"
	}
	if cfg.Daemon.ShutdownTimeout == 0 {
		cfg.Daemon.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
