package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"backoffice/internal/domain/payroll"
	"backoffice/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// GetRecords returns the days in [start, end] ordered by date.
func (s *Store) GetRecords(ctx context.Context, tenantID, employeeID string, start, end time.Time) ([]payroll.AttendanceRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id::text, work_date, is_present, hours_worked
    FROM attendance_records
    WHERE tenant_id = $1 AND employee_id = $2 AND work_date BETWEEN $3 AND $4
    ORDER BY work_date
  `, tenantID, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []payroll.AttendanceRecord
	for rows.Next() {
		var record payroll.AttendanceRecord
		if err := rows.Scan(&record.EmployeeID, &record.Date, &record.IsPresent, &record.HoursWorked); err != nil {
			return nil, err
		}
		record.Date = record.Date.UTC()
		records = append(records, record)
	}
	return records, rows.Err()
}

// Normalize validates the input and zeroes hours on absent days.
func Normalize(input MarkInput) (MarkInput, error) {
	if input.EmployeeID == "" {
		return MarkInput{}, payroll.ErrEmployeeNotFound
	}
	if input.Date.IsZero() {
		return MarkInput{}, ErrInvalidDate
	}
	input.Date = time.Date(input.Date.Year(), input.Date.Month(), input.Date.Day(), 0, 0, 0, 0, time.UTC)
	if !input.IsPresent {
		input.HoursWorked = decimal.Zero
		return input, nil
	}
	if input.HoursWorked.IsNegative() || input.HoursWorked.GreaterThan(maxHoursPerDay) {
		return MarkInput{}, ErrInvalidHours
	}
	return input, nil
}

// Mark upserts one day. The write is refused with ErrPeriodLocked when the
// employee's salary record for that month is already paid; the check and the
// write are one statement.
func (s *Store) Mark(ctx context.Context, tenantID string, input MarkInput) (payroll.AttendanceRecord, error) {
	input, err := Normalize(input)
	if err != nil {
		return payroll.AttendanceRecord{}, err
	}
	period := payroll.PeriodOf(input.Date)

	tag, err := s.DB.Exec(ctx, `
    INSERT INTO attendance_records (tenant_id, employee_id, work_date, is_present, hours_worked, updated_at)
    SELECT $1, $2, $3, $4, $5, now()
    WHERE NOT EXISTS (
      SELECT 1 FROM salary_records
      WHERE tenant_id = $1 AND employee_id = $2 AND period = $6 AND status = 'paid'
    )
    ON CONFLICT (tenant_id, employee_id, work_date) DO UPDATE SET
      is_present = EXCLUDED.is_present,
      hours_worked = EXCLUDED.hours_worked,
      updated_at = now()
  `, tenantID, input.EmployeeID, input.Date, input.IsPresent, input.HoursWorked, period.String())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "23503" || pgErr.Code == "22P02") {
			return payroll.AttendanceRecord{}, payroll.ErrEmployeeNotFound
		}
		return payroll.AttendanceRecord{}, err
	}
	if tag.RowsAffected() == 0 {
		return payroll.AttendanceRecord{}, ErrPeriodLocked
	}
	return payroll.AttendanceRecord{
		EmployeeID:  input.EmployeeID,
		Date:        input.Date,
		IsPresent:   input.IsPresent,
		HoursWorked: input.HoursWorked,
	}, nil
}
