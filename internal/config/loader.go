package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when path is
// empty), merges it on top of the built-in defaults, applies SETTLD_*
// environment variable overrides, and returns the final Config. The caller
// should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SETTLD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject connection strings at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Server.Port, "SETTLD_PORT")
	setStr(&cfg.Database.URL, "SETTLD_DATABASE_URL")
	setStr(&cfg.Redis.URL, "SETTLD_REDIS_URL")
	setInt(&cfg.Redis.TTLSeconds, "SETTLD_REDIS_TTL_SECONDS")
	setStr(&cfg.Treasury.Authority, "SETTLD_TREASURY_AUTHORITY")
	setStr(&cfg.LogLevel, "SETTLD_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
