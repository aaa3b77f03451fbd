package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment          string
	ServerPort           int
	LogLevel             string
	CORSAllowedOrigins   []string
	DBHost               string
	DBPort               int
	DBUser               string
	DBPassword           string
	DBName               string
	DBSSLMode            string
	RedisURL             string // empty disables the Redis verdict cache
	CheckIntervalSeconds int
	SafetyAPIBaseURL     string
	SafetyTimeoutSeconds int
	SafetyCacheTTLMin    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	checkInterval, err := strconv.Atoi(getEnv("CHECK_INTERVAL_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECK_INTERVAL_SECONDS: %w", err)
	}

	safetyTimeout, err := strconv.Atoi(getEnv("SAFETY_TIMEOUT_SECONDS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SAFETY_TIMEOUT_SECONDS: %w", err)
	}

	safetyCacheTTL, err := strconv.Atoi(getEnv("SAFETY_CACHE_TTL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid SAFETY_CACHE_TTL_MINUTES: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               dbPort,
		DBUser:               getEnv("DB_USER", "capsulebuddy"),
		DBPassword:           getEnv("DB_PASSWORD", "dev"),
		DBName:               getEnv("DB_NAME", "capsulebuddy"),
		DBSSLMode:            getEnv("DB_SSLMODE", "disable"),
		RedisURL:             getEnv("REDIS_URL", ""),
		CheckIntervalSeconds: checkInterval,
		SafetyAPIBaseURL:     getEnv("SAFETY_API_BASE_URL", "https://api.fda.gov"),
		SafetyTimeoutSeconds: safetyTimeout,
		SafetyCacheTTLMin:    safetyCacheTTL,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
