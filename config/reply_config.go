package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	ServiceName string

	// Storage
	DatabaseURL      string
	RedisURL         string
	SettingsBackend  string
	SettingsFile     string
	SettingsCacheTTL time.Duration
	// SettingsEncryptionKey, when set, encrypts stored API keys.
	SettingsEncryptionKey string

	// JWT
	JWTSecret string
	// DevUserID enables unauthenticated /dev routes acting as this user (development only).
	DevUserID string

	// Completion provider
	OpenAIBaseURL string
	LLMModel      string
	LLMTimeoutSec int

	// HTTP
	RateLimitPerMin int
	MaxBodyBytes    int
	AllowedOrigins  []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		ServiceName: getEnv("SERVICE_NAME", "reply-server"),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		SettingsBackend:  strings.ToLower(getEnv("SETTINGS_BACKEND", BackendFile)),
		SettingsFile:     getEnv("SETTINGS_FILE", "settings.yaml"),
		SettingsCacheTTL: time.Duration(getEnvInt("SETTINGS_CACHE_TTL_SEC", 120)) * time.Second,

		SettingsEncryptionKey: getEnv("SETTINGS_ENCRYPTION_KEY", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		DevUserID: getEnv("DEV_USER_ID", ""),

		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:      getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeoutSec: getEnvInt("LLM_TIMEOUT_SEC", 60),

		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 20),
		MaxBodyBytes:    getEnvInt("MAX_BODY_BYTES", 1<<20),
		AllowedOrigins:  getEnvSlice("ALLOWED_ORIGINS", []string{"https://mail.google.com"}),
	}
	return cfg, nil
}

// Validate reports the first setting that makes the server unable to start.
func (c *Config) Validate() error {
	switch c.SettingsBackend {
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("SETTINGS_BACKEND=redis requires REDIS_URL")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("SETTINGS_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendFile:
		if c.SettingsFile == "" {
			return fmt.Errorf("SETTINGS_BACKEND=file requires SETTINGS_FILE")
		}
	default:
		return fmt.Errorf("unknown SETTINGS_BACKEND %q (want redis, postgres or file)", c.SettingsBackend)
	}

	if c.LLMTimeoutSec <= 0 {
		return fmt.Errorf("LLM_TIMEOUT_SEC must be positive")
	}
	if c.RateLimitPerMin < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must not be negative")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.IsProduction() && c.DevUserID != "" {
		return fmt.Errorf("DEV_USER_ID must not be set in production")
	}
	return nil
}

// LLMTimeout returns the per-call completion timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
