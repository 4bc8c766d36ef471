package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                    string
	DatabaseURL             string
	RedisURL                string
	JWTSecret               string
	DataEncryptionKey       string
	Environment             string
	LogLevel                string
	LogFormat               string
	RunMigrations           bool
	MigrationsDir           string
	MaxBodyBytes            int64
	PayrollConcurrency      int
	PayrollScheduleInterval time.Duration
	PaymentLockTTL          time.Duration
	PayslipDir              string
	MetricsEnabled          bool
	RateLimitPerMinute      int
	SeedTenant              string
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                    getEnv("APP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		RedisURL:                getEnv("REDIS_URL", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		DataEncryptionKey:       getEnv("DATA_ENCRYPTION_KEY", ""),
		Environment:             getEnv("APP_ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", ""),
		RunMigrations:           getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:           getEnv("MIGRATIONS_DIR", "migrations"),
		MaxBodyBytes:            int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		PayrollConcurrency:      getEnvInt("PAYROLL_CONCURRENCY", 8),
		PayrollScheduleInterval: getEnvDuration("PAYROLL_SCHEDULE_INTERVAL", 0),
		PaymentLockTTL:          getEnvDuration("PAYMENT_LOCK_TTL", 30*time.Second),
		PayslipDir:              getEnv("PAYSLIP_DIR", "storage/payslips"),
		MetricsEnabled:          getEnvBool("METRICS_ENABLED", true),
		RateLimitPerMinute:      getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		SeedTenant:              getEnv("SEED_TENANT", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.PayrollConcurrency <= 0 {
		return fmt.Errorf("PAYROLL_CONCURRENCY must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.PaymentLockTTL <= 0 {
		return fmt.Errorf("PAYMENT_LOCK_TTL must be positive")
	}
	return nil
}
