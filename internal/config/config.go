package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	DatabasePath string
	HistoryDir   string
	LogLevel     string

	// Analytics
	RiskFreeRate    float64 // Annual risk-free rate as decimal (0.02 = 2%)
	BenchmarkSymbol string  // Benchmark for beta regression

	// Alert evaluation cycle (cron expression, with seconds)
	AlertCheckSchedule string

	// Recommendation thresholds
	ConcentrationLimitPct float64
	HighVolatilityPct     float64

	// S3 backups (disabled when bucket is empty)
	BackupBucket    string
	BackupRegion    string
	BackupSchedule  string
	BackupAccessKey string
	BackupSecretKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		DatabasePath: getEnv("DATABASE_PATH", "./data/portfolio.db"),
		HistoryDir:   getEnv("HISTORY_DIR", "./data/history"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		RiskFreeRate:    getEnvAsFloat("RISK_FREE_RATE", 0.02),
		BenchmarkSymbol: getEnv("BENCHMARK_SYMBOL", "SPY"),

		AlertCheckSchedule: getEnv("ALERT_CHECK_SCHEDULE", "0 */5 * * * *"),

		ConcentrationLimitPct: getEnvAsFloat("CONCENTRATION_LIMIT_PCT", 40),
		HighVolatilityPct:     getEnvAsFloat("HIGH_VOLATILITY_PCT", 40),

		BackupBucket:    getEnv("BACKUP_BUCKET", ""),
		BackupRegion:    getEnv("BACKUP_REGION", "eu-west-1"),
		BackupSchedule:  getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
		BackupAccessKey: getEnv("BACKUP_ACCESS_KEY", ""),
		BackupSecretKey: getEnv("BACKUP_SECRET_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.HistoryDir == "" {
		return fmt.Errorf("HISTORY_DIR is required")
	}
	if c.RiskFreeRate < 0 || c.RiskFreeRate > 1 {
		return fmt.Errorf("RISK_FREE_RATE must be a decimal between 0 and 1")
	}
	return nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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
