package config

import "time"

// DaemonConfig configures the pipelined process lifecycle.
type DaemonConfig struct {
	Address             string        `mapstructure:"address"`
	PIDFile             string        `mapstructure:"pid_file"`
	ShutdownTimeout     time.Duration `mapstructure:"shutdown_timeout"`
	AutoStartDex        bool          `mapstructure:"auto_start_dex"`
	AutoStartPolymarket bool          `mapstructure:"auto_start_polymarket"`
}

// KVStoreConfig configures the Redis-compatible key-value store client.
type KVStoreConfig struct {
	Address  string `mapstructure:"address" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig configures event emission verbosity.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
