package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. Empty infrastructure URLs
// select the in-memory implementation of the corresponding store or
// adapter, so the server runs with zero external dependencies by default.
type Config struct {
	Addr     string
	LogLevel slog.Level

	RedisURL    string // settings + contacts stores
	PostgresDSN string // audit journal
	KafkaSeeds  string // escalation notifier (comma separated)
	KafkaTopic  string

	VaultURL        string // evidence vault endpoint
	VaultSigningKey string // HS256 key for upload receipts
	MediaDir        string // local evidence staging directory

	CountdownWindow time.Duration // panic trigger grace period
	IdleTimeout     time.Duration // stealth auto-revert
	StageTimeout    time.Duration // per pipeline stage
	StageRetries    int           // retries after the first attempt
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("HAVEN_ADDR", ":8080"),
		LogLevel:        parseLevel(os.Getenv("HAVEN_LOG_LEVEL")),
		RedisURL:        os.Getenv("HAVEN_REDIS_URL"),
		PostgresDSN:     os.Getenv("HAVEN_POSTGRES_DSN"),
		KafkaSeeds:      os.Getenv("HAVEN_KAFKA_SEEDS"),
		KafkaTopic:      envOr("HAVEN_KAFKA_TOPIC", "haven.escalations"),
		VaultURL:        os.Getenv("HAVEN_VAULT_URL"),
		VaultSigningKey: envOr("HAVEN_VAULT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		MediaDir:        envOr("HAVEN_MEDIA_DIR", os.TempDir()),
		CountdownWindow: envDuration("HAVEN_COUNTDOWN_SECONDS", 5*time.Second),
		IdleTimeout:     envDuration("HAVEN_STEALTH_IDLE_SECONDS", 120*time.Second),
		StageTimeout:    envDuration("HAVEN_STAGE_TIMEOUT_SECONDS", 30*time.Second),
		StageRetries:    envInt("HAVEN_STAGE_RETRIES", 2),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// envDuration reads whole seconds; timers in this service don't need finer
// grain from the environment.
func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
