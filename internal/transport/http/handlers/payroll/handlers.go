package payrollhandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"backoffice/internal/domain/auth"
	"backoffice/internal/domain/payroll"
	"backoffice/internal/transport/http/api"
	"backoffice/internal/transport/http/middleware"
	"backoffice/internal/transport/http/shared"
)

type Service interface {
	ComputeForPeriod(ctx context.Context, tenantID string, period payroll.Period, employeeID string) (payroll.BatchResult, error)
	ListForPeriod(ctx context.Context, tenantID string, period payroll.Period) ([]payroll.SalaryRecord, error)
	GetDue(ctx context.Context, tenantID, employeeID string, period payroll.Period, preview bool) (payroll.DueView, error)
	RecordPayment(ctx context.Context, tenantID string, req payroll.PaymentRequest) (payroll.SalaryRecord, error)
	RecordAdvance(ctx context.Context, tenantID string, req payroll.AdvanceRequest) (payroll.SalaryRecord, error)
	MarkPaid(ctx context.Context, tenantID, recordID string) (payroll.SalaryRecord, error)
	GeneratePayslip(ctx context.Context, tenantID, recordID string) (payroll.PayslipSnapshot, error)
}

type LedgerReader interface {
	ListForEmployee(ctx context.Context, tenantID, employeeID string, start, end time.Time) ([]payroll.LedgerEntry, error)
}

type Handler struct {
	Service    Service
	Ledger     LedgerReader
	Perms      middleware.PermissionStore
	PayslipDir string
	Sealer     payroll.Encrypter
	log        *zap.Logger
}

func NewHandler(svc Service, ledger LedgerReader, perms middleware.PermissionStore, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Service: svc, Ledger: ledger, Perms: perms, log: log.Named("payroll_http")}
}

// WithPayslipArchive stores a copy of every final payslip PDF under dir,
// sealed with enc when it is configured.
func (h *Handler) WithPayslipArchive(dir string, enc payroll.Encrypter) *Handler {
	h.PayslipDir = dir
	h.Sealer = enc
	return h
}

type computePayload struct {
	EmployeeID string `json:"employeeId" validate:"omitempty,uuid"`
}

type postingPayload struct {
	Amount string `json:"amount" validate:"required"`
	Mode   string `json:"mode" validate:"omitempty,oneof=cash bank"`
	Date   string `json:"date"`
	Note   string `json:"note" validate:"max=500"`
}

type advanceResponse struct {
	Record *payroll.SalaryRecord `json:"record"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.Route("/periods/{period}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermPayrollRun, h.Perms)).Post("/compute", h.handleCompute)
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/records", h.handleListRecords)
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/employees/{employeeID}/due", h.handleGetDue)
			r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/employees/{employeeID}/ledger", h.handleListLedger)
			r.With(middleware.RequirePermission(auth.PermPayrollPay, h.Perms), middleware.RequireIdempotencyKey).Post("/employees/{employeeID}/payments", h.handleRecordPayment)
			r.With(middleware.RequirePermission(auth.PermPayrollPay, h.Perms), middleware.RequireIdempotencyKey).Post("/employees/{employeeID}/advances", h.handleRecordAdvance)
		})
		r.With(middleware.RequirePermission(auth.PermPayrollPay, h.Perms)).Post("/records/{recordID}/mark-paid", h.handleMarkPaid)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/records/{recordID}/payslip", h.handlePayslip)
		r.With(middleware.RequirePermission(auth.PermPayrollRead, h.Perms)).Get("/records/{recordID}/payslip.pdf", h.handlePayslipPDF)
	})
}

// periodParam parses the {period} URL segment and answers 400 itself when it
// is malformed.
func (h *Handler) periodParam(w http.ResponseWriter, r *http.Request) (payroll.Period, bool) {
	period, err := payroll.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		v := shared.NewValidator()
		v.Add("period", "must be a month in YYYY-MM format")
		v.Reject(w, middleware.GetRequestID(r.Context()))
		return payroll.Period{}, false
	}
	return period, true
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}

	var payload computePayload
	if err := shared.DecodeJSON(r, &payload, true); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Service.ComputeForPeriod(r.Context(), user.TenantID, period, payload.EmployeeID)
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	if result.Records == nil {
		result.Records = []payroll.SalaryRecord{}
	}
	if result.Failures == nil {
		result.Failures = []payroll.BatchFailure{}
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}

	records, err := h.Service.ListForPeriod(r.Context(), user.TenantID, period)
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	if records == nil {
		records = []payroll.SalaryRecord{}
	}
	api.Success(w, records, reqID)
}

func (h *Handler) handleGetDue(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}

	preview := false
	if raw := strings.TrimSpace(r.URL.Query().Get("preview")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			v := shared.NewValidator()
			v.Add("preview", "must be true or false")
			v.Reject(w, reqID)
			return
		}
		preview = parsed
	}

	view, err := h.Service.GetDue(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"), period, preview)
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	api.Success(w, view, reqID)
}

func (h *Handler) handleListLedger(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if _, err := uuid.Parse(employeeID); err != nil {
		shared.WriteError(w, h.log, payroll.ErrEmployeeNotFound, reqID)
		return
	}

	entries, err := h.Ledger.ListForEmployee(r.Context(), user.TenantID, employeeID, period.Start(), period.End())
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	if entries == nil {
		entries = []payroll.LedgerEntry{}
	}
	api.Success(w, entries, reqID)
}

// decodePosting validates a payment or advance body. It writes the 400
// response itself and reports false on failure.
func (h *Handler) decodePosting(w http.ResponseWriter, r *http.Request) (decimal.Decimal, postingPayload, time.Time, bool) {
	reqID := middleware.GetRequestID(r.Context())
	var payload postingPayload
	if err := shared.DecodeJSON(r, &payload, false); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return decimal.Zero, payload, time.Time{}, false
	}

	v := shared.NewValidator()
	v.Struct(payload)
	amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
	if payload.Amount != "" && err != nil {
		v.Add("amount", "must be a decimal number")
	} else if payload.Amount != "" && !amount.IsPositive() {
		v.Add("amount", "must be greater than 0")
	}
	var date time.Time
	if strings.TrimSpace(payload.Date) != "" {
		date, _ = v.Date("date", payload.Date)
	}
	if v.Reject(w, reqID) {
		return decimal.Zero, payload, time.Time{}, false
	}
	return amount, payload, date, true
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	amount, payload, date, ok := h.decodePosting(w, r)
	if !ok {
		return
	}

	record, err := h.Service.RecordPayment(r.Context(), user.TenantID, payroll.PaymentRequest{
		EmployeeID:     chi.URLParam(r, "employeeID"),
		Period:         period,
		Amount:         amount,
		Mode:           payload.Mode,
		Date:           date,
		IdempotencyKey: middleware.IdempotencyKey(r),
		Note:           strings.TrimSpace(payload.Note),
	})
	if errors.Is(err, payroll.ErrRecordAlreadyPaid) {
		api.FailWithDetails(w, http.StatusConflict, "record_already_paid", err.Error(), map[string]any{"record": record}, reqID)
		return
	}
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	api.Success(w, record, reqID)
}

func (h *Handler) handleRecordAdvance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	amount, payload, date, ok := h.decodePosting(w, r)
	if !ok {
		return
	}

	record, err := h.Service.RecordAdvance(r.Context(), user.TenantID, payroll.AdvanceRequest{
		EmployeeID:     chi.URLParam(r, "employeeID"),
		Period:         period,
		Amount:         amount,
		Mode:           payload.Mode,
		Date:           date,
		IdempotencyKey: middleware.IdempotencyKey(r),
		Note:           strings.TrimSpace(payload.Note),
	})
	if errors.Is(err, payroll.ErrRecordAlreadyPaid) {
		api.FailWithDetails(w, http.StatusConflict, "record_already_paid", err.Error(), map[string]any{"record": record}, reqID)
		return
	}
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	resp := advanceResponse{}
	if record.ID != "" {
		resp.Record = &record
	}
	api.Success(w, resp, reqID)
}

func (h *Handler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	record, err := h.Service.MarkPaid(r.Context(), user.TenantID, chi.URLParam(r, "recordID"))
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	api.Success(w, record, reqID)
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	slip, err := h.Service.GeneratePayslip(r.Context(), user.TenantID, chi.URLParam(r, "recordID"))
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	api.Success(w, slip, reqID)
}

func (h *Handler) handlePayslipPDF(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	slip, err := h.Service.GeneratePayslip(r.Context(), user.TenantID, chi.URLParam(r, "recordID"))
	if err != nil {
		shared.WriteError(w, h.log, err, reqID)
		return
	}
	data, err := payroll.RenderPayslipPDF(slip)
	if err != nil {
		h.log.Error("payslip pdf render failed", zap.String("record_id", slip.RecordID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "payslip_render_failed", "failed to render payslip", reqID)
		return
	}

	if h.PayslipDir != "" && !slip.Provisional {
		if path, err := payroll.ArchivePayslipPDF(h.PayslipDir, h.Sealer, slip, data); err != nil {
			h.log.Warn("payslip archive failed", zap.String("record_id", slip.RecordID), zap.Error(err))
		} else {
			h.log.Debug("payslip archived", zap.String("record_id", slip.RecordID), zap.String("path", path))
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="payslip-`+slip.Period.String()+`-`+slip.EmployeeID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Warn("payslip write failed", zap.Error(err))
	}
}
