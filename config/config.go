package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// HTTP Server
	Port int

	// Database
	DBPath string

	// Authentication
	JWTSecret string
	TokenTTL  time.Duration

	// Quote Provider
	QuoteProvider   string // "yahoo" or "binance"
	QuoteTimeout    time.Duration
	QuoteMaxRetries int

	// Binance credentials (only needed when QuoteProvider is "binance";
	// public ticker endpoints work with empty keys)
	BinanceAPIKey    string
	BinanceSecretKey string

	// Scheduled price refresh
	RefreshEnabled  bool
	RefreshSchedule string // cron expression or @every syntax

	// Logging
	LogLevel  string
	LogPretty bool
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// HTTP Server
	cfg.Port, err = getEnvAsIntRequired("PORT", 8000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PORT: %v", err))
	} else if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, "PORT must be between 1 and 65535")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trade_tracker.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Authentication. The signing secret has no default on purpose.
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	if cfg.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET must be set")
	}

	tokenTTLMinutes, err := getEnvAsIntRequired("TOKEN_TTL_MINUTES", 3000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TOKEN_TTL_MINUTES: %v", err))
	} else if tokenTTLMinutes <= 0 {
		errs = append(errs, "TOKEN_TTL_MINUTES must be positive")
	}
	cfg.TokenTTL = time.Duration(tokenTTLMinutes) * time.Minute

	// Quote Provider
	cfg.QuoteProvider = strings.ToLower(getEnv("QUOTE_PROVIDER", "yahoo"))
	if cfg.QuoteProvider != "yahoo" && cfg.QuoteProvider != "binance" {
		errs = append(errs, fmt.Sprintf("unknown QUOTE_PROVIDER %q (expected yahoo or binance)", cfg.QuoteProvider))
	}

	quoteTimeoutSeconds := getEnvAsInt("QUOTE_TIMEOUT_SECONDS", 30)
	if quoteTimeoutSeconds <= 0 {
		errs = append(errs, "QUOTE_TIMEOUT_SECONDS must be positive")
	}
	cfg.QuoteTimeout = time.Duration(quoteTimeoutSeconds) * time.Second

	cfg.QuoteMaxRetries = getEnvAsInt("QUOTE_MAX_RETRIES", 3)
	if cfg.QuoteMaxRetries < 1 {
		errs = append(errs, "QUOTE_MAX_RETRIES must be at least 1")
	}

	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")

	// Scheduled price refresh
	cfg.RefreshEnabled = getEnvAsBool("REFRESH_ENABLED", true)
	cfg.RefreshSchedule = getEnv("REFRESH_SCHEDULE", "@every 15m")
	if cfg.RefreshEnabled && cfg.RefreshSchedule == "" {
		errs = append(errs, "REFRESH_SCHEDULE must be set when REFRESH_ENABLED is true")
	}

	// Logging
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.LogPretty = getEnvAsBool("LOG_PRETTY", false)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
