package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Upstream pharmacy API
	UpstreamURL string
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Sessions & caching
	SessionTTL   time.Duration
	CacheTTL     time.Duration
	DraftIdleTTL time.Duration

	// JWT / Auth
	JWTSecret       string
	SessionTokenTTL time.Duration

	// Rate limiting (public auth endpoints)
	AuthRateLimit    float64
	AuthRateCapacity int64

	// CORS
	AllowedOrigins []string

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		UpstreamURL: getEnv("UPSTREAM_API_URL", "http://localhost:8081/api"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		SessionTTL:   getEnvDuration("SESSION_TTL", 30*time.Minute),
		CacheTTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),
		DraftIdleTTL: getEnvDuration("DRAFT_IDLE_TTL", 2*time.Hour),

		JWTSecret:       getEnv("JWT_SECRET", "bridge-default-dev-secret-change-me"),
		SessionTokenTTL: getEnvDuration("SESSION_TOKEN_TTL", 30*time.Minute),

		AuthRateLimit:    getEnvFloat("AUTH_RATE_LIMIT", 3),
		AuthRateCapacity: int64(getEnvInt("AUTH_RATE_CAPACITY", 30)),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
