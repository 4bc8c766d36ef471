package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/domain/payroll"
	"backoffice/internal/platform/db/dbtest"
)

func entry(tenantID, employeeID string, category payroll.Category, amount, key string, date time.Time) payroll.LedgerEntry {
	return payroll.LedgerEntry{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		EmployeeID:     employeeID,
		Category:       category,
		Amount:         decimal.RequireFromString(amount),
		Date:           date,
		Mode:           payroll.PaymentModeCash,
		IdempotencyKey: key,
	}
}

func TestSamePayload(t *testing.T) {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	a := entry("t", "e", payroll.CategorySalary, "100.00", "k", day)
	b := a
	b.ID = uuid.NewString()
	b.Date = day.AddDate(0, 0, 1)
	b.Amount = decimal.RequireFromString("100")
	assert.True(t, SamePayload(a, b))

	b.Amount = decimal.RequireFromString("100.01")
	assert.False(t, SamePayload(a, b))

	c := a
	c.Category = payroll.CategoryAdvance
	assert.False(t, SamePayload(a, c))
}

func TestSamePayloadDates(t *testing.T) {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	stored := entry("t", "e", payroll.CategorySalary, "100", "k", day)

	nextMonth := stored
	nextMonth.Date = time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC)
	assert.False(t, SamePayload(stored, nextMonth), "a key reused in another period is a conflict")

	nextYear := stored
	nextYear.Date = day.AddDate(1, 0, 0)
	assert.False(t, SamePayload(stored, nextYear))

	supplied := stored
	supplied.DateSupplied = true
	assert.True(t, SamePayload(stored, supplied))
	supplied.Date = day.AddDate(0, 0, 2)
	assert.False(t, SamePayload(stored, supplied), "a supplied date must match the stored day")
}

func TestPostRejectsInvalidEntries(t *testing.T) {
	store := NewStore(nil)
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	_, err := store.Post(context.Background(), entry("t", "e", payroll.CategorySalary, "10", "", day))
	assert.ErrorIs(t, err, payroll.ErrIdempotencyKeyRequired)

	_, err = store.Post(context.Background(), entry("t", "e", payroll.CategorySalary, "0", "k", day))
	assert.ErrorIs(t, err, payroll.ErrInvalidAmount)
}

func TestStoreIntegration(t *testing.T) {
	pool := dbtest.Open(t)
	ctx := context.Background()
	tenantID := dbtest.Tenant(t, pool)
	employeeID := dbtest.Employee(t, pool, tenantID)
	store := NewStore(pool)

	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	endOfMarch := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)

	posted, err := store.Post(ctx, entry(tenantID, employeeID, payroll.CategoryAdvance, "250.50", "adv-1", march.AddDate(0, 0, 3)))
	require.NoError(t, err)
	assert.True(t, posted)

	posted, err = store.Post(ctx, entry(tenantID, employeeID, payroll.CategoryAdvance, "250.50", "adv-1", march.AddDate(0, 0, 3)))
	require.NoError(t, err)
	assert.False(t, posted, "replay must not post twice")

	_, err = store.Post(ctx, entry(tenantID, employeeID, payroll.CategoryAdvance, "999", "adv-1", march))
	assert.ErrorIs(t, err, payroll.ErrIdempotencyConflict)

	_, err = store.Post(ctx, entry(tenantID, employeeID, payroll.CategoryAdvance, "250.50", "adv-1", march.AddDate(0, 1, 3)))
	assert.ErrorIs(t, err, payroll.ErrIdempotencyConflict)

	_, err = store.Post(ctx, entry(tenantID, employeeID, payroll.CategoryAdvance, "100", "adv-2", endOfMarch))
	require.NoError(t, err)
	_, err = store.Post(ctx, entry(tenantID, employeeID, payroll.CategoryAdvance, "75", "adv-april", endOfMarch.AddDate(0, 0, 1)))
	require.NoError(t, err)
	_, err = store.Post(ctx, entry(tenantID, employeeID, payroll.CategorySalary, "1000", "pay-1", march.AddDate(0, 0, 10)))
	require.NoError(t, err)

	advances, err := store.SumByCategory(ctx, tenantID, employeeID, payroll.CategoryAdvance, march, endOfMarch)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("350.50").Equal(advances), advances.String())

	salary, err := store.SumByCategory(ctx, tenantID, employeeID, payroll.CategorySalary, march, endOfMarch)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(salary))

	none, err := store.SumByCategory(ctx, tenantID, employeeID, payroll.CategorySalary, march.AddDate(0, -1, 0), march.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	entries, err := store.ListForEmployee(ctx, tenantID, employeeID, march, endOfMarch)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
