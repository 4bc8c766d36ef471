package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"backoffice/internal/domain/payroll"
	"backoffice/internal/platform/querier"
)

// Store is the cash ledger. Entries are append-only.
type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// SumByCategory totals entries dated within [start, end], both inclusive.
func (s *Store) SumByCategory(ctx context.Context, tenantID, employeeID string, category payroll.Category, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(SUM(amount), 0)
    FROM ledger_entries
    WHERE tenant_id = $1 AND employee_id = $2 AND category = $3
      AND entry_date BETWEEN $4 AND $5
  `, tenantID, employeeID, string(category), start, end).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// Post appends an entry unless its idempotency key was already used. A
// replay with the same payload reports posted=false; a different payload
// under the same key is ErrIdempotencyConflict.
func (s *Store) Post(ctx context.Context, entry payroll.LedgerEntry) (bool, error) {
	if entry.IdempotencyKey == "" {
		return false, payroll.ErrIdempotencyKeyRequired
	}
	if !entry.Amount.IsPositive() {
		return false, payroll.ErrInvalidAmount
	}

	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO ledger_entries (id, tenant_id, employee_id, category, amount, entry_date, mode, idempotency_key, note)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (tenant_id, idempotency_key) DO NOTHING
    RETURNING id::text
  `, entry.ID, entry.TenantID, entry.EmployeeID, string(entry.Category), entry.Amount, entry.Date, entry.Mode, entry.IdempotencyKey, entry.Note).Scan(&id)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	existing, err := s.GetByKey(ctx, entry.TenantID, entry.IdempotencyKey)
	if err != nil {
		return false, err
	}
	if !SamePayload(existing, entry) {
		return false, fmt.Errorf("%w: key %s", payroll.ErrIdempotencyConflict, entry.IdempotencyKey)
	}
	return false, nil
}

func (s *Store) GetByKey(ctx context.Context, tenantID, key string) (payroll.LedgerEntry, error) {
	var entry payroll.LedgerEntry
	var category string
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, tenant_id::text, employee_id::text, category, amount, entry_date, mode, idempotency_key, note, created_at
    FROM ledger_entries
    WHERE tenant_id = $1 AND idempotency_key = $2
  `, tenantID, key).Scan(&entry.ID, &entry.TenantID, &entry.EmployeeID, &category, &entry.Amount, &entry.Date, &entry.Mode, &entry.IdempotencyKey, &entry.Note, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return payroll.LedgerEntry{}, ErrEntryNotFound
	}
	if err != nil {
		return payroll.LedgerEntry{}, err
	}
	entry.Category = payroll.Category(category)
	return entry, nil
}

// ListForEmployee returns the entries of one employee dated within
// [start, end], oldest first.
func (s *Store) ListForEmployee(ctx context.Context, tenantID, employeeID string, start, end time.Time) ([]payroll.LedgerEntry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, tenant_id::text, employee_id::text, category, amount, entry_date, mode, idempotency_key, note, created_at
    FROM ledger_entries
    WHERE tenant_id = $1 AND employee_id = $2 AND entry_date BETWEEN $3 AND $4
    ORDER BY entry_date, created_at
  `, tenantID, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []payroll.LedgerEntry
	for rows.Next() {
		var entry payroll.LedgerEntry
		var category string
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.EmployeeID, &category, &entry.Amount, &entry.Date, &entry.Mode, &entry.IdempotencyKey, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Category = payroll.Category(category)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SamePayload reports whether b replays the stored entry a. Reusing a key
// for another period is a conflict, not a replay.
func SamePayload(a, b payroll.LedgerEntry) bool {
	return a.SamePosting(b)
}
