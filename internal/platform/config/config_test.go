package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/payroll")
	t.Setenv("PAYROLL_CONCURRENCY", "")
	t.Setenv("PAYMENT_LOCK_TTL", "")
	t.Setenv("MIGRATIONS_DIR", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")

	cfg := Load()
	assert.Equal(t, 8, cfg.PayrollConcurrency)
	assert.Equal(t, 30*time.Second, cfg.PaymentLockTTL)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PAYROLL_CONCURRENCY", "3")
	t.Setenv("PAYROLL_SCHEDULE_INTERVAL", "6h")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg := Load()
	assert.Equal(t, 3, cfg.PayrollConcurrency)
	assert.Equal(t, 6*time.Hour, cfg.PayrollScheduleInterval)
	assert.False(t, cfg.RunMigrations)
}

func TestValidate(t *testing.T) {
	base := Config{DatabaseURL: "postgres://x", MaxBodyBytes: 4096, PayrollConcurrency: 2, PaymentLockTTL: time.Second, RateLimitPerMinute: 60}
	require.NoError(t, base.Validate())

	missingDB := base
	missingDB.DatabaseURL = ""
	assert.Error(t, missingDB.Validate())

	prod := base
	prod.Environment = "production"
	assert.ErrorContains(t, prod.Validate(), "JWT_SECRET")

	prod.JWTSecret = "secret"
	assert.ErrorContains(t, prod.Validate(), "DATA_ENCRYPTION_KEY")

	zeroWorkers := base
	zeroWorkers.PayrollConcurrency = 0
	assert.ErrorContains(t, zeroWorkers.Validate(), "PAYROLL_CONCURRENCY")

	noLimit := base
	noLimit.RateLimitPerMinute = 0
	assert.ErrorContains(t, noLimit.Validate(), "RATE_LIMIT_PER_MINUTE")
}
