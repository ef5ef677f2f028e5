package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string
	// UpstreamBaseURL is the root of the external exam API that owns the
	// question bank, answer persistence and scoring.
	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	RedisURL        string
	// JWTSecret verifies upstream-issued bearer tokens when set. When empty,
	// tokens are decoded without signature verification (expiry and claim
	// shape are still enforced).
	JWTSecret string
	// PracticeDuration / MockDuration are the countdown budgets for the two
	// locally-timed quiz flavors. The chapter flavor syncs against the
	// upstream session end time instead.
	PracticeDuration time.Duration
	MockDuration     time.Duration
	// CountdownTicks is the fixed pre-start pacing delay in seconds.
	CountdownTicks int
	// ScoreTTL bounds how long an unconsumed score payload survives in Redis.
	ScoreTTL time.Duration
	// ChapterSelectionTTL bounds how long a learner's chapter pick is kept.
	ChapterSelectionTTL time.Duration
	// SessionRetention is how long a finished or failed session stays
	// addressable before the registry janitor evicts it.
	SessionRetention time.Duration
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "debug"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "pretty"),
		UpstreamBaseURL:     getEnv("UPSTREAM_BASE_URL", "http://localhost:9000"),
		UpstreamTimeout:     time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 15)) * time.Second,
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		PracticeDuration:    time.Duration(getEnvInt("PRACTICE_DURATION_SECONDS", 1800)) * time.Second,
		MockDuration:        time.Duration(getEnvInt("MOCK_DURATION_SECONDS", 3600)) * time.Second,
		CountdownTicks:      getEnvInt("COUNTDOWN_TICKS", 3),
		ScoreTTL:            time.Duration(getEnvInt("SCORE_TTL_MINUTES", 30)) * time.Minute,
		ChapterSelectionTTL: time.Duration(getEnvInt("CHAPTER_SELECTION_TTL_MINUTES", 120)) * time.Minute,
		SessionRetention:    time.Duration(getEnvInt("SESSION_RETENTION_MINUTES", 15)) * time.Minute,
		AllowedOrigins:      parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
