// Package dbtest opens the integration database for package tests. Tests
// using it are skipped unless TEST_DATABASE_URL is set.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"backoffice/internal/platform/db"
)

func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool, migrationsDir(), zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// Tenant creates a throwaway tenant.
func Tenant(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	id, err := db.EnsureTenant(context.Background(), pool, "test-"+uuid.NewString())
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return id
}

// Employee inserts a bare active employee row with the default schedule.
func Employee(t *testing.T, pool *pgxpool.Pool, tenantID string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(), `
    INSERT INTO employees (tenant_id, name)
    VALUES ($1, $2)
    RETURNING id::text
  `, tenantID, fmt.Sprintf("Employee %d", time.Now().UnixNano())).Scan(&id)
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return id
}

func migrationsDir() string {
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations")
}
