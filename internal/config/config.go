package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultSecretKey = "dev-secret-key"

type Config struct {
	DBPath         string
	SecretKey      string
	ListenAddr     string
	DBBusyTimeout  time.Duration
	DBLockTimeout  time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

// Load reads the environment, after merging an optional .env from the
// working directory. Variables already set win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "err", err)
	}
	return fromEnv()
}

func fromEnv() Config {
	cfg := Config{
		DBPath:     envOr("NOTES_DB_PATH", "notes.db"),
		SecretKey:  envOr("NOTES_SECRET_KEY", DefaultSecretKey),
		ListenAddr: envOr("NOTES_LISTEN_ADDR", "127.0.0.1:8080"),
	}

	cfg.DBBusyTimeout = parseDurationOr("NOTES_DB_BUSY_TIMEOUT", 5*time.Second)
	cfg.DBLockTimeout = parseDurationOr("NOTES_DB_LOCK_TIMEOUT", 2*time.Second)
	cfg.RateLimitRPS = parseFloatOr("NOTES_RATE_LIMIT_RPS", 20)
	cfg.RateLimitBurst = parseIntOr("NOTES_RATE_LIMIT_BURST", 40)
	cfg.CORSOrigins = splitList(os.Getenv("NOTES_CORS_ORIGINS"))
	return cfg
}

// UsingDefaultSecret is true when no secret was configured.
func (c Config) UsingDefaultSecret() bool {
	return c.SecretKey == DefaultSecretKey
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return fallback
}

func parseFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
