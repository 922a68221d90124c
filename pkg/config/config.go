// Package config loads client configuration from the environment and
// validates it before any credential-bearing component is constructed.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/severinkast/marvel-catalog-client/pkg/auth"
	"github.com/severinkast/marvel-catalog-client/pkg/client"
	"github.com/severinkast/marvel-catalog-client/pkg/pagination"
)

// Environment variable names.
const (
	EnvPublicKey   = "MARVEL_PUBLIC_KEY"
	EnvPrivateKey  = "MARVEL_PRIVATE_KEY"
	EnvBaseURL     = "MARVEL_BASE_URL"
	EnvTimeout     = "MARVEL_TIMEOUT"
	EnvPageSize    = "MARVEL_PAGE_SIZE"
	EnvLogLevel    = "MARVEL_LOG_LEVEL"
	EnvDailyBudget = "MARVEL_DAILY_BUDGET"
	EnvRedisURL    = "REDIS_URL"
)

// Config is the validated process configuration.
type Config struct {
	PublicKey  string `validate:"required"`
	PrivateKey string `validate:"required"`
	BaseURL    string `validate:"required,url"`

	// Timeout bounds each page request.
	Timeout time.Duration

	// PageSize is the per-request limit, capped by the gateway ceiling.
	PageSize int `validate:"min=1,max=100"`

	LogLevel string `validate:"oneof=debug info warn error"`

	// DailyBudget is the per-key daily call ceiling used by the quota
	// tracker. Zero selects the gateway default.
	DailyBudget int `validate:"min=0"`

	// RedisAddr enables quota tracking when non-empty.
	RedisAddr string
}

// FromEnv reads configuration from the environment, applies defaults, and
// validates the result.
func FromEnv() (*Config, error) {
	cfg := &Config{
		PublicKey:  os.Getenv(EnvPublicKey),
		PrivateKey: os.Getenv(EnvPrivateKey),
		BaseURL:    getEnv(EnvBaseURL, client.DefaultBaseURL),
		LogLevel:   getEnv(EnvLogLevel, "info"),
		RedisAddr:  os.Getenv(EnvRedisURL),
	}

	timeoutStr := getEnv(EnvTimeout, "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", EnvTimeout, err)
	}
	cfg.Timeout = timeout

	cfg.PageSize, err = intEnv(EnvPageSize, pagination.PageSizeCeiling)
	if err != nil {
		return nil, err
	}

	cfg.DailyBudget, err = intEnv(EnvDailyBudget, 0)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}

	return nil
}

// Credentials returns the key pair as the opaque auth type.
func (c *Config) Credentials() auth.Credentials {
	return auth.NewCredentials(c.PublicKey, c.PrivateKey)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}
