// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/avramidis/tradewinds/internal/clients/eximpedia"
)

// Config holds application configuration
type Config struct {
	// Upstream trade-data provider
	EximpediaBaseURL      string
	EximpediaClientID     string
	EximpediaClientSecret string

	// Client tuning
	MaxConcurrentRequests int
	MinRequestInterval    time.Duration
	PageSize              int
	TokenRefreshBuffer    time.Duration

	// Process settings
	Port     int
	LogLevel string
	DevMode  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		EximpediaBaseURL:      getEnv("EXIMPEDIA_BASE_URL", "https://web.eximpedia.app/backend/apis/v1"),
		EximpediaClientID:     getEnv("EXIMPEDIA_CLIENT_ID", ""),
		EximpediaClientSecret: getEnv("EXIMPEDIA_CLIENT_SECRET", ""),
		MaxConcurrentRequests: getEnvAsInt("API_MAX_CONCURRENT_REQUESTS", 5),
		MinRequestInterval:    secondsDuration(getEnvAsFloat("API_MIN_REQUEST_INTERVAL", 1.0)),
		PageSize:              getEnvAsInt("API_PAGE_SIZE", 1000),
		TokenRefreshBuffer:    time.Duration(getEnvAsInt("TOKEN_REFRESH_BUFFER_SECONDS", 300)) * time.Second,
		Port:                  getEnvAsInt("PORT", 8000),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DevMode:               getEnvAsBool("DEV_MODE", false),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present. The engine is
// useless without upstream credentials, so their absence is fatal at
// startup rather than at the first token refresh.
func (c *Config) Validate() error {
	if c.EximpediaClientID == "" || c.EximpediaClientSecret == "" {
		return fmt.Errorf("EXIMPEDIA_CLIENT_ID and EXIMPEDIA_CLIENT_SECRET are required")
	}
	if c.PageSize < 1 || c.PageSize > 1000 {
		return fmt.Errorf("API_PAGE_SIZE must be between 1 and 1000, got %d", c.PageSize)
	}
	if c.MaxConcurrentRequests < 1 {
		return fmt.Errorf("API_MAX_CONCURRENT_REQUESTS must be positive, got %d", c.MaxConcurrentRequests)
	}
	return nil
}

// ClientConfig maps the loaded settings onto the upstream client's
// configuration.
func (c *Config) ClientConfig() eximpedia.Config {
	return eximpedia.Config{
		BaseURL:       c.EximpediaBaseURL,
		ClientID:      c.EximpediaClientID,
		ClientSecret:  c.EximpediaClientSecret,
		MaxConcurrent: c.MaxConcurrentRequests,
		MinInterval:   c.MinRequestInterval,
		PageSize:      c.PageSize,
		RefreshBuffer: c.TokenRefreshBuffer,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// secondsDuration converts a fractional seconds value to a Duration.
func secondsDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
