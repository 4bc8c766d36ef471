package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type AttendanceSource interface {
	GetRecords(ctx context.Context, tenantID, employeeID string, start, end time.Time) ([]AttendanceRecord, error)
}

type LedgerSource interface {
	SumByCategory(ctx context.Context, tenantID, employeeID string, category Category, start, end time.Time) (decimal.Decimal, error)
}

// ProfileSource returns ErrEmployeeNotFound for unknown or inactive
// employees.
type ProfileSource interface {
	Get(ctx context.Context, tenantID, employeeID string) (EmployeeProfile, error)
	ListActiveIDs(ctx context.Context, tenantID string) ([]string, error)
}

// PaymentPoster appends a ledger entry. A replay with the same idempotency
// key and payload reports posted=false with a nil error.
type PaymentPoster interface {
	Post(ctx context.Context, entry LedgerEntry) (posted bool, err error)
}

// RecordStore persists salary records keyed by (tenant, employee, period).
type RecordStore interface {
	// Upsert writes a computed record. When a paid record already holds the
	// key it is returned unchanged with ErrRecordAlreadyPaid.
	Upsert(ctx context.Context, record SalaryRecord, now time.Time) (SalaryRecord, error)
	// MarkPaid moves a computed record to paid in one conditional write.
	MarkPaid(ctx context.Context, tenantID, recordID string, now time.Time) (SalaryRecord, error)
	Get(ctx context.Context, tenantID, recordID string) (SalaryRecord, error)
	GetByKey(ctx context.Context, tenantID, employeeID string, period Period) (SalaryRecord, error)
	ListForPeriod(ctx context.Context, tenantID string, period Period) ([]SalaryRecord, error)
}

// PaymentGuard serialises concurrent submissions of one idempotency key.
// Release only frees the key while it is still held under token.
type PaymentGuard interface {
	Acquire(ctx context.Context, tenantID, key string) (token string, acquired bool, err error)
	Release(ctx context.Context, tenantID, key, token string) error
}

type Recorder interface {
	RecordComputed(n int)
	RecordBatchFailures(n int)
	RecordPaymentPosted(category string)
	RecordMarkedPaid()
}

// AuditLog records domain actions. The app wires domain/audit in here.
type AuditLog interface {
	Record(ctx context.Context, tenantID, action, entityType, entityID string, details any)
}
