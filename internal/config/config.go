package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the board binary reads from the environment
type Config struct {
	Port     string
	LogLevel string

	DBPath   string
	SeedFile string
	TraceLog string

	Reddit RedditConfig
}

// RedditConfig selects and configures the listing collector
type RedditConfig struct {
	Mode         string
	UserAgent    string
	BaseURL      string
	ProxyURL     string
	RateInterval time.Duration

	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvOrDefault("PORT", "8080"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		DBPath:   getEnvOrDefault("DB_PATH", "data/board.db"),
		SeedFile: getEnvOrDefault("SEED_FILE", "input/subreddits.csv"),
		TraceLog: getEnvOrDefault("TRACE_LOG", "data/fetch_trace.ndjson"),
		Reddit: RedditConfig{
			Mode:         strings.ToLower(getEnvOrDefault("COLLECTOR_MODE", "public")),
			UserAgent:    os.Getenv("REDDIT_USER_AGENT"),
			BaseURL:      os.Getenv("REDDIT_BASE_URL"),
			ProxyURL:     os.Getenv("REDDIT_PROXY_URL"),
			RateInterval: getEnvAsDuration("REDDIT_RATE_INTERVAL", 0),
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			Username:     os.Getenv("REDDIT_USERNAME"),
			Password:     os.Getenv("REDDIT_PASSWORD"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for the selected collector mode.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Port)
	}

	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}

	switch c.Reddit.Mode {
	case "public", "rss", "mock":
	case "api":
		if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
			return fmt.Errorf("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required for api mode")
		}
		if c.Reddit.UserAgent == "" {
			return fmt.Errorf("REDDIT_USER_AGENT is required for api mode")
		}
	default:
		return fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'public', 'api', 'rss', or 'mock')", c.Reddit.Mode)
	}

	if c.Reddit.RateInterval < 0 {
		return fmt.Errorf("REDDIT_RATE_INTERVAL must not be negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
