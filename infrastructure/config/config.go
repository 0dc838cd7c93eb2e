// Package config loads application configuration from environment
// variables and validates it before anything else starts.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":8080"`
	Environment   string `env:"ENVIRONMENT" envDefault:"development"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Discovery API configuration
	DiscoveryBaseURL string        `env:"DISCOVERY_BASE_URL" envDefault:"https://app.ticketmaster.com/discovery/v2"`
	DiscoveryAPIKey  string        `env:"DISCOVERY_API_KEY"`
	DiscoveryTimeout time.Duration `env:"DISCOVERY_TIMEOUT" envDefault:"10s"`

	// Session token signing
	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"citypulse"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	// Secure storage
	SecureStorePath   string `env:"SECURE_STORE_PATH" envDefault:"citypulse.db"`
	SecureStoreSecret string `env:"SECURE_STORE_SECRET"`

	// Biometric hardware. The mock authenticator stands in for a platform
	// sensor outside production.
	MockBiometric bool `env:"MOCK_BIOMETRIC" envDefault:"true"`

	// Feature flags
	EnableMetrics bool `env:"ENABLE_METRICS" envDefault:"true"`
	EnableCORS    bool `env:"ENABLE_CORS" envDefault:"true"`
	EnableBreaker bool `env:"ENABLE_BREAKER" envDefault:"true"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present. A missing
// discovery API key is a configuration error, not a runtime failure.
func (c *Config) Validate() error {
	if c.DiscoveryAPIKey == "" {
		return fmt.Errorf("DISCOVERY_API_KEY is required")
	}
	if c.DiscoveryTimeout <= 0 {
		return fmt.Errorf("DISCOVERY_TIMEOUT must be positive")
	}
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.SecureStoreSecret == "" {
			return fmt.Errorf("SECURE_STORE_SECRET is required in production")
		}
		if c.MockBiometric {
			return fmt.Errorf("MOCK_BIOMETRIC must be disabled in production")
		}
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
