package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentConfig is either FixedPay or HourlyPay.
type PaymentConfig interface {
	PaymentType() PaymentType
	isPaymentConfig()
}

// FixedPay is a contractual monthly salary. A nil BasicSalary is a
// configuration error, not zero pay.
type FixedPay struct {
	BasicSalary *decimal.Decimal
}

func (FixedPay) PaymentType() PaymentType { return PaymentTypeFixed }
func (FixedPay) isPaymentConfig()         {}

// HourlyPay pays every worked hour at a flat rate.
type HourlyPay struct {
	HourlyRate *decimal.Decimal
}

func (HourlyPay) PaymentType() PaymentType { return PaymentTypeHourly }
func (HourlyPay) isPaymentConfig()         {}

type EmployeeProfile struct {
	ID                   string          `json:"id"`
	TenantID             string          `json:"tenantId"`
	Name                 string          `json:"name"`
	Pay                  PaymentConfig   `json:"-"`
	WorkingDaysPerPeriod int             `json:"workingDaysPerPeriod"`
	WorkingHoursPerDay   decimal.Decimal `json:"workingHoursPerDay"`
	OvertimeMultiplier   decimal.Decimal `json:"overtimeMultiplier"`
}

// NewProfile returns a profile carrying the default schedule and multiplier.
func NewProfile(tenantID, employeeID string, pay PaymentConfig) EmployeeProfile {
	return EmployeeProfile{
		ID:                   employeeID,
		TenantID:             tenantID,
		Pay:                  pay,
		WorkingDaysPerPeriod: DefaultWorkingDaysPerPeriod,
		WorkingHoursPerDay:   DefaultWorkingHoursPerDay,
		OvertimeMultiplier:   DefaultOvertimeMultiplier,
	}
}

type AttendanceRecord struct {
	EmployeeID  string          `json:"employeeId"`
	Date        time.Time       `json:"date"`
	IsPresent   bool            `json:"isPresent"`
	HoursWorked decimal.Decimal `json:"hoursWorked"`
}

type LedgerEntry struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenantId"`
	EmployeeID     string          `json:"employeeId"`
	Category       Category        `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	Date           time.Time       `json:"date"`
	Mode           string          `json:"mode"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Note           string          `json:"note,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	// DateSupplied marks a date given by the caller rather than defaulted.
	DateSupplied bool `json:"-"`
}

// SamePosting reports whether replay repeats e under the same idempotency
// key. Ids and timestamps are per attempt and ignored. A defaulted date only
// has to fall in the same period; a supplied one must be the same day.
func (e LedgerEntry) SamePosting(replay LedgerEntry) bool {
	if e.TenantID != replay.TenantID ||
		e.EmployeeID != replay.EmployeeID ||
		e.Category != replay.Category ||
		!e.Amount.Equal(replay.Amount) ||
		e.Mode != replay.Mode {
		return false
	}
	if PeriodOf(e.Date) != PeriodOf(replay.Date) {
		return false
	}
	if replay.DateSupplied {
		ey, em, ed := e.Date.UTC().Date()
		ry, rm, rd := replay.Date.UTC().Date()
		return ey == ry && em == rm && ed == rd
	}
	return true
}

// Figures is the calculator output for one employee and period. Monetary
// fields are rounded to minor units; hour fields are exact.
type Figures struct {
	PaymentType        PaymentType     `json:"paymentType"`
	PresentDays        int             `json:"presentDays"`
	TotalDays          int             `json:"totalDays"`
	TotalHours         decimal.Decimal `json:"totalHours"`
	ExpectedHours      decimal.Decimal `json:"expectedHours"`
	OvertimeHours      decimal.Decimal `json:"overtimeHours"`
	UndertimeHours     decimal.Decimal `json:"undertimeHours"`
	DerivedHourlyRate  decimal.Decimal `json:"derivedHourlyRate"`
	BaseSalary         decimal.Decimal `json:"baseSalary"`
	OvertimePay        decimal.Decimal `json:"overtimePay"`
	UndertimeDeduction decimal.Decimal `json:"undertimeDeduction"`
	Gross              decimal.Decimal `json:"gross"`
	Advances           decimal.Decimal `json:"advances"`
	AlreadyPaid        decimal.Decimal `json:"alreadyPaid"`
	Net                decimal.Decimal `json:"net"`
}

func (f Figures) State() NetState {
	return netStateOf(f.Net)
}

type SalaryRecord struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenantId"`
	EmployeeID      string          `json:"employeeId"`
	Period          Period          `json:"period"`
	GrossAmount     decimal.Decimal `json:"grossAmount"`
	AdvanceDeducted decimal.Decimal `json:"advanceDeducted"`
	OtherDeductions decimal.Decimal `json:"otherDeductions"`
	NetAmount       decimal.Decimal `json:"netAmount"`
	PresentDays     int             `json:"presentDays"`
	TotalDays       int             `json:"totalDays"`
	TotalHours      decimal.Decimal `json:"totalHours"`
	OvertimeHours   decimal.Decimal `json:"overtimeHours"`
	UndertimeHours  decimal.Decimal `json:"undertimeHours"`
	Status          Status          `json:"status"`
	ComputedAt      time.Time       `json:"computedAt"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
}

func (r SalaryRecord) NetState() NetState {
	return netStateOf(r.NetAmount)
}

// SameFigures reports whether two records carry identical financial and
// attendance figures, ignoring identity and timestamps.
func (r SalaryRecord) SameFigures(other SalaryRecord) bool {
	return r.GrossAmount.Equal(other.GrossAmount) &&
		r.AdvanceDeducted.Equal(other.AdvanceDeducted) &&
		r.OtherDeductions.Equal(other.OtherDeductions) &&
		r.NetAmount.Equal(other.NetAmount) &&
		r.PresentDays == other.PresentDays &&
		r.TotalDays == other.TotalDays &&
		r.TotalHours.Equal(other.TotalHours) &&
		r.OvertimeHours.Equal(other.OvertimeHours) &&
		r.UndertimeHours.Equal(other.UndertimeHours)
}

type PayslipSnapshot struct {
	RecordID        string          `json:"recordId"`
	TenantID        string          `json:"tenantId"`
	EmployeeID      string          `json:"employeeId"`
	EmployeeName    string          `json:"employeeName"`
	PaymentType     PaymentType     `json:"paymentType"`
	Period          Period          `json:"period"`
	Status          Status          `json:"status"`
	Provisional     bool            `json:"provisional"`
	GrossAmount     decimal.Decimal `json:"grossAmount"`
	AdvanceDeducted decimal.Decimal `json:"advanceDeducted"`
	OtherDeductions decimal.Decimal `json:"otherDeductions"`
	NetAmount       decimal.Decimal `json:"netAmount"`
	NetState        NetState        `json:"netState"`
	PresentDays     int             `json:"presentDays"`
	TotalDays       int             `json:"totalDays"`
	TotalHours      decimal.Decimal `json:"totalHours"`
	OvertimeHours   decimal.Decimal `json:"overtimeHours"`
	UndertimeHours  decimal.Decimal `json:"undertimeHours"`
	ComputedAt      time.Time       `json:"computedAt"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}

type BatchFailure struct {
	EmployeeID string        `json:"employeeId"`
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Record     *SalaryRecord `json:"record,omitempty"`
	Err        error         `json:"-"`
}

// BatchResult is the partial-success report of ComputeForPeriod. Records and
// Failures keep the order employees were listed in.
type BatchResult struct {
	Period    Period         `json:"period"`
	Records   []SalaryRecord `json:"records"`
	Failures  []BatchFailure `json:"failures"`
	Skipped   []string       `json:"skipped,omitempty"`
	Cancelled bool           `json:"cancelled"`
}

// DueView separates "not yet computed" (Persisted false) from a stored
// record whose net happens to be zero.
type DueView struct {
	Record    SalaryRecord `json:"record"`
	Figures   *Figures     `json:"figures,omitempty"`
	Persisted bool         `json:"persisted"`
	State     NetState     `json:"state"`
}

type PaymentRequest struct {
	EmployeeID     string
	Period         Period
	Amount         decimal.Decimal
	Mode           string
	Date           time.Time
	IdempotencyKey string
	Note           string
}

type AdvanceRequest struct {
	EmployeeID     string
	Period         Period
	Amount         decimal.Decimal
	Mode           string
	Date           time.Time
	IdempotencyKey string
	Note           string
}

func netStateOf(net decimal.Decimal) NetState {
	switch net.Sign() {
	case 1:
		return NetDue
	case -1:
		return NetExcess
	default:
		return NetSettled
	}
}
