package payroll

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"backoffice/internal/platform/querier"
)

const recordColumns = `id::text, tenant_id::text, employee_id::text, period,
           gross_amount, advance_deducted, other_deductions, net_amount,
           present_days, total_days, total_hours, overtime_hours, undertime_hours,
           status, computed_at, paid_at`

// Store is the Postgres RecordStore.
type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (SalaryRecord, error) {
	var record SalaryRecord
	var period, status string
	if err := row.Scan(
		&record.ID, &record.TenantID, &record.EmployeeID, &period,
		&record.GrossAmount, &record.AdvanceDeducted, &record.OtherDeductions, &record.NetAmount,
		&record.PresentDays, &record.TotalDays, &record.TotalHours, &record.OvertimeHours, &record.UndertimeHours,
		&status, &record.ComputedAt, &record.PaidAt,
	); err != nil {
		return SalaryRecord{}, err
	}
	parsed, err := ParsePeriod(period)
	if err != nil {
		return SalaryRecord{}, err
	}
	record.Period = parsed
	record.Status = Status(status)
	record.ComputedAt = record.ComputedAt.UTC()
	if record.PaidAt != nil {
		paidAt := record.PaidAt.UTC()
		record.PaidAt = &paidAt
	}
	return record, nil
}

// Upsert keeps computed_at stable when the figures did not change, so
// recomputing unchanged inputs leaves the row identical.
func (s *Store) Upsert(ctx context.Context, record SalaryRecord, now time.Time) (SalaryRecord, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO salary_records (
      id, tenant_id, employee_id, period,
      gross_amount, advance_deducted, other_deductions, net_amount,
      present_days, total_days, total_hours, overtime_hours, undertime_hours,
      status, computed_at
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,'computed',$14)
    ON CONFLICT (tenant_id, employee_id, period) DO UPDATE SET
      gross_amount = EXCLUDED.gross_amount,
      advance_deducted = EXCLUDED.advance_deducted,
      other_deductions = EXCLUDED.other_deductions,
      net_amount = EXCLUDED.net_amount,
      present_days = EXCLUDED.present_days,
      total_days = EXCLUDED.total_days,
      total_hours = EXCLUDED.total_hours,
      overtime_hours = EXCLUDED.overtime_hours,
      undertime_hours = EXCLUDED.undertime_hours,
      computed_at = CASE
        WHEN (salary_records.gross_amount, salary_records.advance_deducted, salary_records.other_deductions,
              salary_records.net_amount, salary_records.present_days, salary_records.total_days,
              salary_records.total_hours, salary_records.overtime_hours, salary_records.undertime_hours)
          IS DISTINCT FROM
             (EXCLUDED.gross_amount, EXCLUDED.advance_deducted, EXCLUDED.other_deductions,
              EXCLUDED.net_amount, EXCLUDED.present_days, EXCLUDED.total_days,
              EXCLUDED.total_hours, EXCLUDED.overtime_hours, EXCLUDED.undertime_hours)
        THEN EXCLUDED.computed_at
        ELSE salary_records.computed_at
      END
    WHERE salary_records.status = 'computed'
    RETURNING `+recordColumns,
		uuid.NewString(), record.TenantID, record.EmployeeID, record.Period.String(),
		record.GrossAmount, record.AdvanceDeducted, record.OtherDeductions, record.NetAmount,
		record.PresentDays, record.TotalDays, record.TotalHours, record.OvertimeHours, record.UndertimeHours,
		now,
	)
	stored, err := scanRecord(row)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return SalaryRecord{}, err
	}

	// The conflicting row is paid; the update was filtered out.
	paid, err := s.GetByKey(ctx, record.TenantID, record.EmployeeID, record.Period)
	if err != nil {
		return SalaryRecord{}, err
	}
	return paid, ErrRecordAlreadyPaid
}

func (s *Store) MarkPaid(ctx context.Context, tenantID, recordID string, now time.Time) (SalaryRecord, error) {
	if _, err := uuid.Parse(recordID); err != nil {
		return SalaryRecord{}, ErrNotFound
	}
	record, err := scanRecord(s.DB.QueryRow(ctx, `
    UPDATE salary_records
    SET status = 'paid', paid_at = $3
    WHERE tenant_id = $1 AND id = $2 AND status = 'computed'
    RETURNING `+recordColumns, tenantID, recordID, now))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return SalaryRecord{}, err
	}
	if _, err := s.Get(ctx, tenantID, recordID); err != nil {
		return SalaryRecord{}, err
	}
	return SalaryRecord{}, ErrInvalidStateTransition
}

func (s *Store) Get(ctx context.Context, tenantID, recordID string) (SalaryRecord, error) {
	if _, err := uuid.Parse(recordID); err != nil {
		return SalaryRecord{}, ErrNotFound
	}
	record, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM salary_records
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, recordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return SalaryRecord{}, ErrNotFound
	}
	return record, err
}

func (s *Store) GetByKey(ctx context.Context, tenantID, employeeID string, period Period) (SalaryRecord, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return SalaryRecord{}, ErrNotFound
	}
	record, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM salary_records
    WHERE tenant_id = $1 AND employee_id = $2 AND period = $3
  `, tenantID, employeeID, period.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return SalaryRecord{}, ErrNotFound
	}
	return record, err
}

func (s *Store) ListForPeriod(ctx context.Context, tenantID string, period Period) ([]SalaryRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM salary_records
    WHERE tenant_id = $1 AND period = $2
    ORDER BY employee_id
  `, tenantID, period.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SalaryRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
