package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	JWT     JWTConfig
	Backend BackendConfig
	Gate    GateConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// BackendConfig points at the authoritative attendance backend.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// GateConfig carries the gating engine tunables. The buffer, cadence and
// bootstrap delay mirror what the mobile client shipped with; they stay
// configurable rather than inlined.
type GateConfig struct {
	OfficeRadiusMeters float64
	ReminderBuffer     time.Duration
	PeriodicInterval   time.Duration
	BootstrapDelay     time.Duration
	LocationMaxAge     time.Duration
}

func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	backendTimeout, err := time.ParseDuration(getEnv("BACKEND_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BACKEND_TIMEOUT: %w", err)
	}

	config.Backend = BackendConfig{
		BaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:9000"),
		Timeout: backendTimeout,
	}

	radius, err := strconv.ParseFloat(getEnv("OFFICE_RADIUS_M", "100"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OFFICE_RADIUS_M: %w", err)
	}

	reminderBuffer, err := time.ParseDuration(getEnv("REMINDER_BUFFER", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_BUFFER: %w", err)
	}

	periodicInterval, err := time.ParseDuration(getEnv("PERIODIC_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PERIODIC_INTERVAL: %w", err)
	}

	bootstrapDelay, err := time.ParseDuration(getEnv("BOOTSTRAP_DELAY", "100ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOTSTRAP_DELAY: %w", err)
	}

	locationMaxAge, err := time.ParseDuration(getEnv("LOCATION_MAX_AGE", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCATION_MAX_AGE: %w", err)
	}

	config.Gate = GateConfig{
		OfficeRadiusMeters: radius,
		ReminderBuffer:     reminderBuffer,
		PeriodicInterval:   periodicInterval,
		BootstrapDelay:     bootstrapDelay,
		LocationMaxAge:     locationMaxAge,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if c.Gate.OfficeRadiusMeters <= 0 {
		return fmt.Errorf("OFFICE_RADIUS_M must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
