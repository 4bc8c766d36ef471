package shared

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"backoffice/internal/domain/attendance"
	"backoffice/internal/domain/employee"
	"backoffice/internal/domain/payroll"
	"backoffice/internal/transport/http/api"
)

var statusByCode = map[string]int{
	"invalid_period":              http.StatusBadRequest,
	"invalid_amount":              http.StatusBadRequest,
	"outside_period":              http.StatusBadRequest,
	"idempotency_key_required":    http.StatusBadRequest,
	"employee_not_found":          http.StatusNotFound,
	"not_found":                   http.StatusNotFound,
	"record_already_paid":         http.StatusConflict,
	"invalid_state_transition":    http.StatusConflict,
	"payment_in_flight":           http.StatusConflict,
	"idempotency_conflict":        http.StatusConflict,
	"invalid_payment_type_config": http.StatusUnprocessableEntity,
	"zero_denominator":            http.StatusUnprocessableEntity,
	"duplicate_attendance":        http.StatusUnprocessableEntity,
	"cancelled":                   http.StatusServiceUnavailable,
}

// ErrorStatus maps a domain error to its HTTP status and stable code.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, attendance.ErrPeriodLocked):
		return http.StatusConflict, "period_locked"
	case errors.Is(err, attendance.ErrInvalidHours), errors.Is(err, attendance.ErrInvalidDate):
		return http.StatusBadRequest, "invalid_attendance"
	case errors.Is(err, employee.ErrInvalidProfile), errors.Is(err, employee.ErrNameRequired):
		return http.StatusBadRequest, "invalid_employee"
	}
	code := payroll.ErrorCode(err)
	if status, ok := statusByCode[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, "internal_error"
}

// WriteError sends err through the envelope. Unexpected errors are logged
// and their message is not echoed to the client.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error, requestID string) {
	status, code := ErrorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("request_id", requestID), zap.Error(err))
		api.Fail(w, status, code, "internal error", requestID)
		return
	}
	api.Fail(w, status, code, err.Error(), requestID)
}
