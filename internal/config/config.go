// Package config defines the settlement engine configuration and its
// loading rules: built-in defaults, an optional TOML file, then SETTLD_*
// environment variable overrides.
package config

import "fmt"

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Treasury TreasuryConfig `toml:"treasury"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds the HTTP listener parameters.
type ServerConfig struct {
	Port string `toml:"port"`
}

// DatabaseConfig holds PostgreSQL connection parameters. An empty URL means
// the in-memory store is used (data will not persist).
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// RedisConfig holds the optional read-through cache parameters.
type RedisConfig struct {
	URL        string `toml:"url"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// TreasuryConfig identifies the protocol fee authority.
type TreasuryConfig struct {
	Authority string `toml:"authority"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server:   ServerConfig{Port: "8080"},
		Redis:    RedisConfig{TTLSeconds: 30},
		Treasury: TreasuryConfig{Authority: "protocol-admin"},
		LogLevel: "info",
	}
}

// Validate checks invariants the loader cannot default away.
func (c *Config) Validate() error {
	if c.Treasury.Authority == "" {
		return fmt.Errorf("config: treasury.authority must not be empty")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("config: server.port must not be empty")
	}
	if c.Redis.TTLSeconds <= 0 {
		return fmt.Errorf("config: redis.ttl_seconds must be positive")
	}
	return nil
}
