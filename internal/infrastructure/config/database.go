package config

// DatabaseConfig configures the SQLite-backed execution ledger.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}
