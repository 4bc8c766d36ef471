package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Lifecycle owns the computed -> paid state machine of salary records.
type Lifecycle struct {
	records  RecordStore
	profiles ProfileSource
	now      func() time.Time
}

func NewLifecycle(records RecordStore, profiles ProfileSource) *Lifecycle {
	return &Lifecycle{records: records, profiles: profiles, now: utcNow}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// UpsertComputed stores fresh figures for the natural key. A paid record is
// returned as stored together with ErrRecordAlreadyPaid.
func (l *Lifecycle) UpsertComputed(ctx context.Context, tenantID, employeeID string, period Period, figures Figures) (SalaryRecord, error) {
	if tenantID == "" || employeeID == "" {
		return SalaryRecord{}, fmt.Errorf("%w: tenant and employee are required", ErrEmployeeNotFound)
	}
	if !period.Valid() {
		return SalaryRecord{}, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}
	record := figures.ToRecord(tenantID, employeeID, period)
	stored, err := l.records.Upsert(ctx, record, l.now())
	if err != nil {
		if errors.Is(err, ErrRecordAlreadyPaid) {
			return stored, err
		}
		return SalaryRecord{}, fmt.Errorf("upsert salary record %s/%s: %w", employeeID, period, err)
	}
	return stored, nil
}

func (l *Lifecycle) MarkPaid(ctx context.Context, tenantID, recordID string) (SalaryRecord, error) {
	return l.records.MarkPaid(ctx, tenantID, recordID, l.now())
}

func (l *Lifecycle) Get(ctx context.Context, tenantID, recordID string) (SalaryRecord, error) {
	return l.records.Get(ctx, tenantID, recordID)
}

func (l *Lifecycle) ListForPeriod(ctx context.Context, tenantID string, period Period) ([]SalaryRecord, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}
	return l.records.ListForPeriod(ctx, tenantID, period)
}

// GeneratePayslip projects a record into a payslip snapshot. Computed
// records yield a provisional slip.
func (l *Lifecycle) GeneratePayslip(ctx context.Context, tenantID, recordID string) (PayslipSnapshot, error) {
	record, err := l.records.Get(ctx, tenantID, recordID)
	if err != nil {
		return PayslipSnapshot{}, err
	}

	snapshot := PayslipSnapshot{
		RecordID:        record.ID,
		TenantID:        record.TenantID,
		EmployeeID:      record.EmployeeID,
		Period:          record.Period,
		Status:          record.Status,
		Provisional:     record.Status != StatusPaid,
		GrossAmount:     record.GrossAmount,
		AdvanceDeducted: record.AdvanceDeducted,
		OtherDeductions: record.OtherDeductions,
		NetAmount:       record.NetAmount,
		NetState:        record.NetState(),
		PresentDays:     record.PresentDays,
		TotalDays:       record.TotalDays,
		TotalHours:      record.TotalHours,
		OvertimeHours:   record.OvertimeHours,
		UndertimeHours:  record.UndertimeHours,
		ComputedAt:      record.ComputedAt,
		PaidAt:          record.PaidAt,
		GeneratedAt:     l.now(),
	}

	if l.profiles != nil {
		profile, err := l.profiles.Get(ctx, tenantID, record.EmployeeID)
		switch {
		case err == nil:
			snapshot.EmployeeName = profile.Name
			if profile.Pay != nil {
				snapshot.PaymentType = profile.Pay.PaymentType()
			}
		case errors.Is(err, ErrEmployeeNotFound):
			// Deactivated employees still get their historical slips.
		default:
			return PayslipSnapshot{}, err
		}
	}
	return snapshot, nil
}

// Current returns the stored record for the natural key, or ErrNotFound.
func (l *Lifecycle) Current(ctx context.Context, tenantID, employeeID string, period Period) (SalaryRecord, error) {
	return l.records.GetByKey(ctx, tenantID, employeeID, period)
}
