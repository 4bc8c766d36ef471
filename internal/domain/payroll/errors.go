package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidPaymentTypeConfig = errors.New("invalid payment type configuration")
	ErrZeroDenominator          = errors.New("working days per period times working hours per day is zero")
	ErrDuplicateAttendance      = errors.New("duplicate attendance date")
	ErrOutsidePeriod            = errors.New("date outside payroll period")
	ErrNegativeAmount           = errors.New("amount must not be negative")
	ErrInvalidPeriod            = errors.New("invalid payroll period")
	ErrEmployeeNotFound         = errors.New("employee not found")
	ErrNotFound                 = errors.New("salary record not found")
	ErrRecordAlreadyPaid        = errors.New("salary record already paid")
	ErrInvalidStateTransition   = errors.New("invalid salary record state transition")
	ErrInvalidAmount            = errors.New("amount must be positive")
	ErrIdempotencyKeyRequired   = errors.New("idempotency key required")
	ErrIdempotencyConflict      = errors.New("idempotency key reused with a different payload")
	ErrPaymentInFlight          = errors.New("payment with this idempotency key is in progress")
)

type DuplicateAttendanceError struct {
	EmployeeID string
	Date       time.Time
}

func (e *DuplicateAttendanceError) Error() string {
	return fmt.Sprintf("duplicate attendance for employee %s on %s", e.EmployeeID, e.Date.Format(dateLayout))
}

func (e *DuplicateAttendanceError) Unwrap() error { return ErrDuplicateAttendance }

type InvalidPaymentTypeConfigError struct {
	EmployeeID  string
	PaymentType PaymentType
	Reason      string
}

func (e *InvalidPaymentTypeConfigError) Error() string {
	if e.PaymentType == "" {
		return fmt.Sprintf("employee %s: %s", e.EmployeeID, e.Reason)
	}
	return fmt.Sprintf("employee %s (%s): %s", e.EmployeeID, e.PaymentType, e.Reason)
}

func (e *InvalidPaymentTypeConfigError) Unwrap() error { return ErrInvalidPaymentTypeConfig }

// ErrorCode maps an error to the stable code used in batch reports and API
// responses.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPaymentTypeConfig):
		return "invalid_payment_type_config"
	case errors.Is(err, ErrZeroDenominator):
		return "zero_denominator"
	case errors.Is(err, ErrDuplicateAttendance):
		return "duplicate_attendance"
	case errors.Is(err, ErrOutsidePeriod):
		return "outside_period"
	case errors.Is(err, ErrNegativeAmount), errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidPeriod):
		return "invalid_period"
	case errors.Is(err, ErrEmployeeNotFound):
		return "employee_not_found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRecordAlreadyPaid):
		return "record_already_paid"
	case errors.Is(err, ErrInvalidStateTransition):
		return "invalid_state_transition"
	case errors.Is(err, ErrIdempotencyKeyRequired):
		return "idempotency_key_required"
	case errors.Is(err, ErrIdempotencyConflict):
		return "idempotency_conflict"
	case errors.Is(err, ErrPaymentInFlight):
		return "payment_in_flight"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal_error"
	}
}
