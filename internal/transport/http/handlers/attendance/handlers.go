package attendancehandler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"backoffice/internal/domain/attendance"
	"backoffice/internal/domain/auth"
	"backoffice/internal/domain/payroll"
	"backoffice/internal/transport/http/api"
	"backoffice/internal/transport/http/middleware"
	"backoffice/internal/transport/http/shared"
)

type Store interface {
	Mark(ctx context.Context, tenantID string, input attendance.MarkInput) (payroll.AttendanceRecord, error)
	GetRecords(ctx context.Context, tenantID, employeeID string, start, end time.Time) ([]payroll.AttendanceRecord, error)
}

type Handler struct {
	Store Store
	Perms middleware.PermissionStore
	log   *zap.Logger
}

func NewHandler(store Store, perms middleware.PermissionStore, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Store: store, Perms: perms, log: log.Named("attendance_http")}
}

type markPayload struct {
	IsPresent   *bool  `json:"isPresent" validate:"required"`
	HoursWorked string `json:"hoursWorked"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance/employees/{employeeID}", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Put("/days/{date}", h.handleMark)
	})
}

func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload markPayload
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	date, _ := v.Date("date", chi.URLParam(r, "date"))
	v.Struct(payload)
	hours := decimal.Zero
	if raw := strings.TrimSpace(payload.HoursWorked); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			v.Add("hoursWorked", "must be a decimal number")
		}
		hours = parsed
	}
	if v.Reject(w, reqID) {
		return
	}

	record, err := h.Store.Mark(r.Context(), user.TenantID, attendance.MarkInput{
		EmployeeID:  chi.URLParam(r, "employeeID"),
		Date:        date,
		IsPresent:   *payload.IsPresent,
		HoursWorked: hours,
	})
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	api.Success(w, record, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	employeeID := chi.URLParam(r, "employeeID")
	if _, err := uuid.Parse(employeeID); err != nil {
		shared.WriteError(w, h.log, payroll.ErrEmployeeNotFound, reqID)
		return
	}
	period, err := payroll.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		v := shared.NewValidator()
		v.Add("period", "must be a month in YYYY-MM format")
		v.Reject(w, reqID)
		return
	}

	records, err := h.Store.GetRecords(r.Context(), user.TenantID, employeeID, period.Start(), period.End())
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	if records == nil {
		records = []payroll.AttendanceRecord{}
	}
	api.Success(w, records, reqID)
}
