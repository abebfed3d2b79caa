package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	LogLevel          string

	// Escrow and scheduling
	ServiceFeeRate         float64
	ReleaseCheckInterval   time.Duration
	ReleaseDelay           time.Duration
	DailyReleaseAnchorHour int
	Location               *time.Location
	SchedulerEnabled       bool

	// DemoSeed loads demo users and listings into the in-memory stores.
	DemoSeed bool
	// DBMigrate applies db/schema.sql at startup.
	DBMigrate bool
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is optional in dev: without it the in-memory repositories are used.
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" && cfg.IsProduction {
		return nil, fmt.Errorf("DB_DSN is required in production")
	}

	// Redis is optional; without it leases are process-local.
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	// JWT secret is required for validating tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// JWT access token TTL, parse as time.Duration (e.g. "15m", "1h").
	cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_TTL: %w", err)
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// Platform-wide service fee, e.g. 0.10 for 10%.
	cfg.ServiceFeeRate, err = getEnvAsFloat("SERVICE_FEE_RATE", 0.10)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVICE_FEE_RATE: %w", err)
	}
	if cfg.ServiceFeeRate < 0 || cfg.ServiceFeeRate >= 1 {
		return nil, fmt.Errorf("SERVICE_FEE_RATE must be in [0, 1), got %v", cfg.ServiceFeeRate)
	}

	cfg.ReleaseCheckInterval, err = getEnvAsDuration("RELEASE_CHECK_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid RELEASE_CHECK_INTERVAL: %w", err)
	}
	if cfg.ReleaseCheckInterval <= 0 {
		return nil, fmt.Errorf("RELEASE_CHECK_INTERVAL must be positive")
	}

	cfg.ReleaseDelay, err = getEnvAsDuration("RELEASE_DELAY", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid RELEASE_DELAY: %w", err)
	}

	cfg.DailyReleaseAnchorHour, err = getEnvAsInt("DAILY_RELEASE_ANCHOR_HOUR", 15)
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_RELEASE_ANCHOR_HOUR: %w", err)
	}
	if cfg.DailyReleaseAnchorHour < 0 || cfg.DailyReleaseAnchorHour > 23 {
		return nil, fmt.Errorf("DAILY_RELEASE_ANCHOR_HOUR must be in [0, 23]")
	}

	// Calendar dates and release anchors are interpreted in this zone.
	cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg.SchedulerEnabled = getEnv("SCHEDULER_ENABLED", "true") == "true"
	cfg.DemoSeed = getEnv("DEMO_SEED", "false") == "true"
	cfg.DBMigrate = getEnv("DB_MIGRATE", "false") == "true"

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid number: %w", key, valStr, err)
	}

	return val, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}

	return val, nil
}
