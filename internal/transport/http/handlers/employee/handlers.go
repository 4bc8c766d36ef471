package employeehandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"backoffice/internal/domain/auth"
	"backoffice/internal/domain/employee"
	"backoffice/internal/domain/payroll"
	"backoffice/internal/transport/http/api"
	"backoffice/internal/transport/http/middleware"
	"backoffice/internal/transport/http/shared"
)

type Store interface {
	Create(ctx context.Context, tenantID, name string) (string, error)
	Get(ctx context.Context, tenantID, employeeID string) (payroll.EmployeeProfile, error)
	SavePayProfile(ctx context.Context, tenantID, employeeID string, input employee.PayProfileInput) (payroll.EmployeeProfile, error)
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
	return &Handler{Store: store, Perms: perms, log: log.Named("employee_http")}
}

type createPayload struct {
	Name string `json:"name" validate:"required,max=200"`
}

type payProfilePayload struct {
	PaymentType          string `json:"paymentType" validate:"required,oneof=fixed hourly"`
	Amount               string `json:"amount" validate:"required"`
	WorkingDaysPerPeriod *int   `json:"workingDaysPerPeriod" validate:"omitempty,gte=1,lte=31"`
	WorkingHoursPerDay   string `json:"workingHoursPerDay"`
	OvertimeMultiplier   string `json:"overtimeMultiplier"`
}

// profileView hides the sealed PaymentConfig behind plain fields.
type profileView struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	PaymentType          payroll.PaymentType `json:"paymentType,omitempty"`
	Amount               *decimal.Decimal    `json:"amount,omitempty"`
	WorkingDaysPerPeriod int                 `json:"workingDaysPerPeriod"`
	WorkingHoursPerDay   decimal.Decimal     `json:"workingHoursPerDay"`
	OvertimeMultiplier   decimal.Decimal     `json:"overtimeMultiplier"`
}

func toView(p payroll.EmployeeProfile) profileView {
	view := profileView{
		ID:                   p.ID,
		Name:                 p.Name,
		WorkingDaysPerPeriod: p.WorkingDaysPerPeriod,
		WorkingHoursPerDay:   p.WorkingHoursPerDay,
		OvertimeMultiplier:   p.OvertimeMultiplier,
	}
	switch pay := p.Pay.(type) {
	case payroll.FixedPay:
		view.PaymentType = payroll.PaymentTypeFixed
		view.Amount = pay.BasicSalary
	case payroll.HourlyPay:
		view.PaymentType = payroll.PaymentTypeHourly
		view.Amount = pay.HourlyRate
	}
	return view
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/{employeeID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Put("/{employeeID}/pay-profile", h.handleSavePayProfile)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload createPayload
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	id, err := h.Store.Create(r.Context(), user.TenantID, payload.Name)
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	api.Created(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	profile, err := h.Store.Get(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	api.Success(w, toView(profile), reqID)
}

func (h *Handler) handleSavePayProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload payProfilePayload
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	input := employee.PayProfileInput{
		PaymentType:          payroll.PaymentType(payload.PaymentType),
		WorkingDaysPerPeriod: payload.WorkingDaysPerPeriod,
	}
	if payload.Amount != "" {
		input.Amount = parseDecimal(v, "amount", payload.Amount)
	}
	if payload.WorkingHoursPerDay != "" {
		value := parseDecimal(v, "workingHoursPerDay", payload.WorkingHoursPerDay)
		input.WorkingHoursPerDay = &value
	}
	if payload.OvertimeMultiplier != "" {
		value := parseDecimal(v, "overtimeMultiplier", payload.OvertimeMultiplier)
		input.OvertimeMultiplier = &value
	}
	if v.Reject(w, reqID) {
		return
	}

	profile, err := h.Store.SavePayProfile(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"), input)
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	api.Success(w, toView(profile), reqID)
}

func parseDecimal(v *shared.Validator, field, raw string) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		v.Add(field, "must be a decimal number")
		return decimal.Zero
	}
	return value
}
