package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Calculate derives the payroll figures for one employee and period. It is
// pure and safe for concurrent use. Monetary figures are rounded once, at the
// end, with banker's rounding; net is derived from the rounded gross so the
// persisted record always balances.
func Calculate(profile EmployeeProfile, records []AttendanceRecord, period Period, totalAdvances, totalAlreadyPaid decimal.Decimal) (Figures, error) {
	if !period.Valid() {
		return Figures{}, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}
	if totalAdvances.IsNegative() {
		return Figures{}, fmt.Errorf("advances: %w", ErrNegativeAmount)
	}
	if totalAlreadyPaid.IsNegative() {
		return Figures{}, fmt.Errorf("already paid: %w", ErrNegativeAmount)
	}

	totals, err := summarize(profile.ID, records, period)
	if err != nil {
		return Figures{}, err
	}

	figures := Figures{
		PresentDays:    totals.presentDays,
		TotalDays:      totals.totalDays,
		TotalHours:     totals.hours,
		ExpectedHours:  decimal.Zero,
		OvertimeHours:  decimal.Zero,
		UndertimeHours: decimal.Zero,
		Advances:       totalAdvances.RoundBank(moneyPlaces),
		AlreadyPaid:    totalAlreadyPaid.RoundBank(moneyPlaces),
	}

	var gross decimal.Decimal
	switch pay := profile.Pay.(type) {
	case HourlyPay:
		if pay.HourlyRate == nil {
			return Figures{}, &InvalidPaymentTypeConfigError{EmployeeID: profile.ID, PaymentType: PaymentTypeHourly, Reason: "hourly rate is not set"}
		}
		if pay.HourlyRate.IsNegative() {
			return Figures{}, &InvalidPaymentTypeConfigError{EmployeeID: profile.ID, PaymentType: PaymentTypeHourly, Reason: "hourly rate is negative"}
		}
		figures.PaymentType = PaymentTypeHourly
		gross = totals.hours.Mul(*pay.HourlyRate)
		figures.DerivedHourlyRate = pay.HourlyRate.RoundBank(moneyPlaces)
		figures.BaseSalary = gross.RoundBank(moneyPlaces)
		figures.OvertimePay = decimal.Zero
		figures.UndertimeDeduction = decimal.Zero
	case FixedPay:
		if pay.BasicSalary == nil {
			return Figures{}, &InvalidPaymentTypeConfigError{EmployeeID: profile.ID, PaymentType: PaymentTypeFixed, Reason: "basic salary is not set"}
		}
		if pay.BasicSalary.IsNegative() {
			return Figures{}, &InvalidPaymentTypeConfigError{EmployeeID: profile.ID, PaymentType: PaymentTypeFixed, Reason: "basic salary is negative"}
		}
		contractHours := decimal.NewFromInt(int64(profile.WorkingDaysPerPeriod)).Mul(profile.WorkingHoursPerDay)
		if contractHours.IsZero() {
			return Figures{}, fmt.Errorf("employee %s: %w", profile.ID, ErrZeroDenominator)
		}
		if contractHours.IsNegative() {
			return Figures{}, &InvalidPaymentTypeConfigError{EmployeeID: profile.ID, PaymentType: PaymentTypeFixed, Reason: "working schedule is negative"}
		}
		if profile.OvertimeMultiplier.LessThan(decimal.NewFromInt(1)) {
			return Figures{}, &InvalidPaymentTypeConfigError{EmployeeID: profile.ID, PaymentType: PaymentTypeFixed, Reason: "overtime multiplier is below 1"}
		}

		rate := pay.BasicSalary.Div(contractHours)
		expected := decimal.NewFromInt(int64(totals.presentDays)).Mul(profile.WorkingHoursPerDay)
		overtime := decimal.Max(decimal.Zero, totals.hours.Sub(expected))
		undertime := decimal.Max(decimal.Zero, expected.Sub(totals.hours))

		base := totals.hours.Mul(rate)
		overtimePay := overtime.Mul(rate).Mul(profile.OvertimeMultiplier)
		undertimeDeduction := undertime.Mul(rate)
		gross = base.Add(overtimePay).Sub(undertimeDeduction)

		figures.PaymentType = PaymentTypeFixed
		figures.ExpectedHours = expected
		figures.OvertimeHours = overtime
		figures.UndertimeHours = undertime
		figures.DerivedHourlyRate = rate.RoundBank(moneyPlaces)
		figures.BaseSalary = base.RoundBank(moneyPlaces)
		figures.OvertimePay = overtimePay.RoundBank(moneyPlaces)
		figures.UndertimeDeduction = undertimeDeduction.RoundBank(moneyPlaces)
	case nil:
		return Figures{}, &InvalidPaymentTypeConfigError{EmployeeID: profile.ID, Reason: "payment type is not set"}
	default:
		return Figures{}, &InvalidPaymentTypeConfigError{EmployeeID: profile.ID, Reason: fmt.Sprintf("unsupported payment type %T", pay)}
	}

	figures.Gross = gross.RoundBank(moneyPlaces)
	figures.Net = figures.Gross.Sub(figures.Advances).Sub(figures.AlreadyPaid)
	return figures, nil
}

type attendanceTotals struct {
	presentDays int
	totalDays   int
	hours       decimal.Decimal
}

func summarize(employeeID string, records []AttendanceRecord, period Period) (attendanceTotals, error) {
	totals := attendanceTotals{hours: decimal.Zero}
	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		if !period.Contains(record.Date) {
			return attendanceTotals{}, fmt.Errorf("attendance %s for employee %s: %w", record.Date.Format(dateLayout), employeeID, ErrOutsidePeriod)
		}
		day := record.Date.Format(dateLayout)
		if _, ok := seen[day]; ok {
			return attendanceTotals{}, &DuplicateAttendanceError{EmployeeID: employeeID, Date: record.Date}
		}
		seen[day] = struct{}{}
		totals.totalDays++

		if !record.IsPresent {
			continue
		}
		if record.HoursWorked.IsNegative() {
			return attendanceTotals{}, fmt.Errorf("hours on %s for employee %s: %w", day, employeeID, ErrNegativeAmount)
		}
		totals.presentDays++
		totals.hours = totals.hours.Add(record.HoursWorked)
	}
	return totals, nil
}

// ToRecord projects the figures onto a salary record for the natural key.
func (f Figures) ToRecord(tenantID, employeeID string, period Period) SalaryRecord {
	return SalaryRecord{
		TenantID:        tenantID,
		EmployeeID:      employeeID,
		Period:          period,
		GrossAmount:     f.Gross,
		AdvanceDeducted: f.Advances,
		OtherDeductions: f.AlreadyPaid,
		NetAmount:       f.Net,
		PresentDays:     f.PresentDays,
		TotalDays:       f.TotalDays,
		TotalHours:      f.TotalHours,
		OvertimeHours:   f.OvertimeHours,
		UndertimeHours:  f.UndertimeHours,
		Status:          StatusComputed,
	}
}
