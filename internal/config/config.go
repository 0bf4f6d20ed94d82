package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Local article cache
	CachePath string `json:"cache_path"`

	// Remote article store (redis)
	RedisURL    string `json:"redis_url"`
	RedisPrefix string `json:"redis_prefix"`

	// Help-center import feed
	FeedBaseURL     string        `json:"feed_base_url"`
	FeedAccountID   string        `json:"feed_account_id"`
	FeedPortalSlug  string        `json:"feed_portal_slug"`
	FeedAccessToken string        `json:"feed_access_token"`
	FeedMaxPages    int           `json:"feed_max_pages"`
	ImportTimeout   time.Duration `json:"import_timeout"`

	// Logging
	LogLevel string `json:"log_level"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Local article cache
		CachePath: getEnv("CACHE_PATH", "./data/articles.json"),

		// Remote article store
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: getEnv("REDIS_PREFIX", "articles:"),

		// Import feed
		FeedBaseURL:     getEnv("FEED_BASE_URL", ""),
		FeedAccountID:   getEnv("FEED_ACCOUNT_ID", ""),
		FeedPortalSlug:  getEnv("FEED_PORTAL_SLUG", ""),
		FeedAccessToken: getEnv("FEED_ACCESS_TOKEN", ""),
		FeedMaxPages:    getEnvAsInt("FEED_MAX_PAGES", 50),
		ImportTimeout:   getEnvAsDuration("IMPORT_TIMEOUT", 10*time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Security
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.CachePath == "" {
		return fmt.Errorf("CACHE_PATH must not be empty")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must not be empty")
	}
	if c.FeedMaxPages <= 0 {
		return fmt.Errorf("FEED_MAX_PAGES must be positive, got %d", c.FeedMaxPages)
	}
	return nil
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
