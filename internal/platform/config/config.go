package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server binary needs from its environment.
// Defaults mirror the reference deployment.
type Config struct {
	Addr        string
	RedisURL    string
	PostgresDSN string
	// KafkaBrokers is empty when no change feed is configured; the publisher
	// degrades to a no-op in that case.
	KafkaBrokers []string

	JWTSecret  string
	TokenTTL   time.Duration
	SessionTTL time.Duration

	CacheTTL time.Duration

	LockThreshold int
	LockTTL       time.Duration

	RateLimit  int
	RateWindow time.Duration

	Redis RedisConfig
}

// RedisConfig tunes the shared key-value store client.
type RedisConfig struct {
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:         envString("POPREG_ADDR", ":8080"),
		RedisURL:     envString("POPREG_REDIS_URL", "redis://localhost:6379/0"),
		PostgresDSN:  os.Getenv("POPREG_POSTGRES_DSN"),
		KafkaBrokers: envList("POPREG_KAFKA_BROKERS"),

		// Should be overridden in production.
		JWTSecret:  envString("POPREG_JWT_SECRET", "dev-secret-key-change-in-production"),
		TokenTTL:   envDuration("POPREG_TOKEN_TTL", 24*time.Hour),
		SessionTTL: envDuration("POPREG_SESSION_TTL", 24*time.Hour),

		CacheTTL: envDuration("POPREG_CACHE_TTL", time.Hour),

		LockThreshold: envInt("POPREG_LOCK_THRESHOLD", 5),
		LockTTL:       envDuration("POPREG_LOCK_TTL", 30*time.Minute),

		RateLimit:  envInt("POPREG_RATE_LIMIT", 60),
		RateWindow: envDuration("POPREG_RATE_WINDOW", time.Minute),

		Redis: RedisConfig{
			PoolSize:     envInt("POPREG_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("POPREG_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("POPREG_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("POPREG_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("POPREG_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
