// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment.
type Config struct {
	AnthropicKey   string
	TavilyKey      string
	Model          string
	Collection     string
	Port           string
	AuditDBPath    string
	SeedFile       string
	SearchCacheTTL int // seconds
	RequestTimeout int // seconds
}

// Load reads configuration, honoring a .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	if anthropicKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required in environment")
	}

	return &Config{
		AnthropicKey:   anthropicKey,
		TavilyKey:      os.Getenv("TAVILY_API_KEY"),
		Model:          envOrDefault("ADVISOR_MODEL", "claude-sonnet-4-20250514"),
		Collection:     envOrDefault("MEMORY_COLLECTION", "finance"),
		Port:           envOrDefault("PORT", "8080"),
		AuditDBPath:    envOrDefault("AUDIT_DB_PATH", "advisory_runs.db"),
		SeedFile:       os.Getenv("MEMORY_SEED_FILE"),
		SearchCacheTTL: envIntOrDefault("SEARCH_CACHE_TTL_SECONDS", 300),
		RequestTimeout: envIntOrDefault("REQUEST_TIMEOUT_SECONDS", 120),
	}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
