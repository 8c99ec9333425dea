package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level configuration for codepulse.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Aggregation  AggregationConfig  `koanf:"aggregation"`
	SessionCache SessionCacheConfig `koanf:"session_cache"`
	Language     LanguageConfig     `koanf:"language"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // "debug" or "release"
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// AggregationConfig holds settings for the aggregation engine.
type AggregationConfig struct {
	Enabled      bool   `koanf:"enabled"`
	CronInterval string `koanf:"cron_interval"` // parsed as time.Duration in main
	BatchSize    int    `koanf:"batch_size"`
}

// SessionCacheConfig holds settings for the session cache sweeper.
type SessionCacheConfig struct {
	SweepEnabled  bool   `koanf:"sweep_enabled"`
	SweepInterval string `koanf:"sweep_interval"` // parsed as time.Duration in main
}

// LanguageConfig holds settings for language normalization.
type LanguageConfig struct {
	AliasDir string `koanf:"alias_dir"`
}

// Load loads the configuration from the given file path and environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"server.port":                  8080,
		"server.host":                  "0.0.0.0",
		"server.max_body_size_mb":      1,
		"server.mode":                  "release",
		"database.dsn":                 "postgres://localhost:5432/codepulse?sslmode=disable",
		"database.max_open_conns":      25,
		"database.max_idle_conns":      25,
		"database.auto_migrate":        true,
		"aggregation.enabled":          true,
		"aggregation.cron_interval":    "2m",
		"aggregation.batch_size":       10000,
		"session_cache.sweep_enabled":  true,
		"session_cache.sweep_interval": "10m",
		"language.alias_dir":           "./config/languages",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// 2. Load from file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// 3. Load from Environment Variables
	// CODEPULSE_SERVER__PORT=9090 overrides server.port
	if err := k.Load(env.Provider("CODEPULSE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "CODEPULSE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
