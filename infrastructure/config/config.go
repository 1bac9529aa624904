// Package config provides environment-based configuration loading for the
// rebalance engine, in the style of the teacher's unified config loaders
// (env var + default fallback, no external config service).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// GetEnv returns the trimmed value of key, or defaultValue if unset/empty.
func GetEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool parses key as a boolean, accepting true/1/yes/y
// case-insensitively as true.
func GetEnvBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "y":
		return true
	case "false", "0", "no", "n":
		return false
	default:
		return defaultValue
	}
}

// GetEnvInt parses key as an int, or returns defaultValue on error/unset.
func GetEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvDuration parses key via time.ParseDuration, or returns
// defaultValue on error/unset.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

// EngineConfig is the typed configuration for one orchestrator process,
// decoded from environment variables via envdecode.
type EngineConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	TickInterval        time.Duration `env:"TICK_INTERVAL,default=15s"`
	TickCron            string        `env:"TICK_CRON"`
	TickTimeout         time.Duration `env:"TICK_TIMEOUT,default=60s"`
	CallbackConcurrency int           `env:"CALLBACK_CONCURRENCY,default=8"`

	EarmarkTTL   time.Duration `env:"EARMARK_TTL,default=24h"`
	OperationTTL time.Duration `env:"OPERATION_TTL,default=24h"`

	RoutePolicyPath string `env:"ROUTE_POLICY_PATH,required"`
	ChainConfigPath string `env:"CHAIN_CONFIG_PATH,required"`

	AdminListenAddr string `env:"ADMIN_LISTEN_ADDR,default=:8081"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`
}

// Load decodes EngineConfig from the process environment.
func Load() (EngineConfig, error) {
	var cfg EngineConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
