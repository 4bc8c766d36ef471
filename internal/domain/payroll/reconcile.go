package payroll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 8

// Service orchestrates computation, payment posting and record transitions
// for one tenant at a time. Every call takes the tenant explicitly.
type Service struct {
	attendance  AttendanceSource
	ledger      LedgerSource
	profiles    ProfileSource
	poster      PaymentPoster
	lifecycle   *Lifecycle
	guard       PaymentGuard
	metrics     Recorder
	audit       AuditLog
	log         *zap.Logger
	concurrency int
	now         func() time.Time
}

type Option func(*Service)

// WithConcurrency caps the number of employees computed at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithPaymentGuard(guard PaymentGuard) Option {
	return func(s *Service) { s.guard = guard }
}

func WithMetrics(metrics Recorder) Option {
	return func(s *Service) { s.metrics = metrics }
}

func WithAuditLog(audit AuditLog) Option {
	return func(s *Service) { s.audit = audit }
}

// WithClock replaces the wall clock used for ledger dates and record stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(attendance AttendanceSource, ledger LedgerSource, profiles ProfileSource, poster PaymentPoster, records RecordStore, opts ...Option) *Service {
	s := &Service{
		attendance:  attendance,
		ledger:      ledger,
		profiles:    profiles,
		poster:      poster,
		log:         zap.NewNop(),
		concurrency: DefaultConcurrency,
		now:         utcNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lifecycle = NewLifecycle(records, profiles)
	s.lifecycle.now = s.now
	s.log = s.log.Named("payroll")
	return s
}

func (s *Service) Lifecycle() *Lifecycle {
	return s.lifecycle
}

// ComputeForPeriod computes and stores salary records for one employee, or
// for every active employee when employeeID is empty. Per-employee failures
// are reported in the result; the batch never aborts on them. When ctx is
// cancelled no further employees are started and the remainder is listed in
// Skipped.
func (s *Service) ComputeForPeriod(ctx context.Context, tenantID string, period Period, employeeID string) (BatchResult, error) {
	if !period.Valid() {
		return BatchResult{}, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}

	var ids []string
	if employeeID != "" {
		ids = []string{employeeID}
	} else {
		active, err := s.profiles.ListActiveIDs(ctx, tenantID)
		if err != nil {
			return BatchResult{}, fmt.Errorf("list active employees: %w", err)
		}
		ids = active
	}

	type outcome struct {
		started bool
		record  SalaryRecord
		err     error
	}
	outcomes := make([]outcome, len(ids))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		i, id := i, id
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			record, err := s.computeAndStore(ctx, tenantID, id, period)
			outcomes[i] = outcome{started: true, record: record, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{
		Period:   period,
		Records:  make([]SalaryRecord, 0, len(ids)),
		Failures: []BatchFailure{},
	}
	for i, out := range outcomes {
		id := ids[i]
		switch {
		case !out.started:
			result.Skipped = append(result.Skipped, id)
		case out.err != nil:
			failure := BatchFailure{EmployeeID: id, Code: ErrorCode(out.err), Message: out.err.Error(), Err: out.err}
			if errors.Is(out.err, ErrRecordAlreadyPaid) && out.record.ID != "" {
				frozen := out.record
				failure.Record = &frozen
			}
			result.Failures = append(result.Failures, failure)
			s.log.Warn("salary computation failed",
				zap.String("tenant_id", tenantID),
				zap.String("employee_id", id),
				zap.String("period", period.String()),
				zap.String("code", failure.Code),
				zap.Error(out.err),
			)
		default:
			result.Records = append(result.Records, out.record)
		}
	}
	result.Cancelled = ctx.Err() != nil

	if s.metrics != nil {
		s.metrics.RecordComputed(len(result.Records))
		s.metrics.RecordBatchFailures(len(result.Failures))
	}
	s.log.Info("payroll batch computed",
		zap.String("tenant_id", tenantID),
		zap.String("period", period.String()),
		zap.Int("employees", len(ids)),
		zap.Int("computed", len(result.Records)),
		zap.Int("failed", len(result.Failures)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Bool("cancelled", result.Cancelled),
	)
	s.recordAudit(ctx, tenantID, "payroll.compute", "salary_period", period.String(), map[string]any{
		"employeeId": employeeID,
		"computed":   len(result.Records),
		"failed":     len(result.Failures),
		"skipped":    len(result.Skipped),
	})
	return result, nil
}

func (s *Service) computeAndStore(ctx context.Context, tenantID, employeeID string, period Period) (SalaryRecord, error) {
	figures, err := s.compute(ctx, tenantID, employeeID, period)
	if err != nil {
		return SalaryRecord{}, err
	}
	return s.lifecycle.UpsertComputed(ctx, tenantID, employeeID, period, figures)
}

// compute gathers the live inputs for one employee and runs the calculator.
func (s *Service) compute(ctx context.Context, tenantID, employeeID string, period Period) (Figures, error) {
	profile, err := s.profiles.Get(ctx, tenantID, employeeID)
	if err != nil {
		return Figures{}, err
	}
	start, end := period.Start(), period.End()
	records, err := s.attendance.GetRecords(ctx, tenantID, employeeID, start, end)
	if err != nil {
		return Figures{}, fmt.Errorf("load attendance: %w", err)
	}
	advances, err := s.ledger.SumByCategory(ctx, tenantID, employeeID, CategoryAdvance, start, end)
	if err != nil {
		return Figures{}, fmt.Errorf("sum advances: %w", err)
	}
	paid, err := s.ledger.SumByCategory(ctx, tenantID, employeeID, CategorySalary, start, end)
	if err != nil {
		return Figures{}, fmt.Errorf("sum salary payments: %w", err)
	}
	return Calculate(profile, records, period, advances, paid)
}

// GetDue returns the stored record for display. Without a stored record, or
// when preview is set, the figures are computed from live data and not
// persisted.
func (s *Service) GetDue(ctx context.Context, tenantID, employeeID string, period Period, preview bool) (DueView, error) {
	if !period.Valid() {
		return DueView{}, fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}
	if !preview {
		stored, err := s.lifecycle.Current(ctx, tenantID, employeeID, period)
		switch {
		case err == nil:
			return DueView{Record: stored, Persisted: true, State: stored.NetState()}, nil
		case !errors.Is(err, ErrNotFound):
			return DueView{}, err
		}
	}

	figures, err := s.compute(ctx, tenantID, employeeID, period)
	if err != nil {
		return DueView{}, err
	}
	record := figures.ToRecord(tenantID, employeeID, period)
	record.ComputedAt = s.now()
	return DueView{Record: record, Figures: &figures, Persisted: false, State: figures.State()}, nil
}

// RecordPayment posts a salary cash-out to the ledger and refreshes the
// computed record. It never changes the record status; MarkPaid does that.
// Replays of the same idempotency key return the current record without a
// second ledger entry.
func (s *Service) RecordPayment(ctx context.Context, tenantID string, req PaymentRequest) (SalaryRecord, error) {
	entry := LedgerEntry{
		TenantID:       tenantID,
		EmployeeID:     req.EmployeeID,
		Category:       CategorySalary,
		Amount:         req.Amount,
		Date:           req.Date,
		Mode:           req.Mode,
		IdempotencyKey: req.IdempotencyKey,
		Note:           req.Note,
	}
	return s.post(ctx, req.Period, entry, true)
}

// RecordAdvance posts an advance and refreshes the computed record when one
// is already stored for the period.
func (s *Service) RecordAdvance(ctx context.Context, tenantID string, req AdvanceRequest) (SalaryRecord, error) {
	entry := LedgerEntry{
		TenantID:       tenantID,
		EmployeeID:     req.EmployeeID,
		Category:       CategoryAdvance,
		Amount:         req.Amount,
		Date:           req.Date,
		Mode:           req.Mode,
		IdempotencyKey: req.IdempotencyKey,
		Note:           req.Note,
	}
	return s.post(ctx, req.Period, entry, false)
}

func (s *Service) post(ctx context.Context, period Period, entry LedgerEntry, alwaysRefresh bool) (SalaryRecord, error) {
	if err := s.prepareEntry(period, &entry); err != nil {
		return SalaryRecord{}, err
	}

	if s.guard != nil {
		token, acquired, err := s.guard.Acquire(ctx, entry.TenantID, entry.IdempotencyKey)
		if err != nil {
			return SalaryRecord{}, fmt.Errorf("acquire payment guard: %w", err)
		}
		if !acquired {
			return SalaryRecord{}, ErrPaymentInFlight
		}
		defer func() {
			if err := s.guard.Release(context.WithoutCancel(ctx), entry.TenantID, entry.IdempotencyKey, token); err != nil {
				s.log.Warn("release payment guard", zap.String("key", entry.IdempotencyKey), zap.Error(err))
			}
		}()
	}

	if _, err := s.profiles.Get(ctx, entry.TenantID, entry.EmployeeID); err != nil {
		return SalaryRecord{}, err
	}

	current, err := s.lifecycle.Current(ctx, entry.TenantID, entry.EmployeeID, period)
	hasRecord := err == nil
	switch {
	case hasRecord && current.Status == StatusPaid:
		return current, ErrRecordAlreadyPaid
	case err != nil && !errors.Is(err, ErrNotFound):
		return SalaryRecord{}, err
	}

	posted, err := s.poster.Post(ctx, entry)
	if err != nil {
		return SalaryRecord{}, fmt.Errorf("post %s entry: %w", entry.Category, err)
	}
	if posted {
		if s.metrics != nil {
			s.metrics.RecordPaymentPosted(string(entry.Category))
		}
		s.log.Info("ledger entry posted",
			zap.String("tenant_id", entry.TenantID),
			zap.String("employee_id", entry.EmployeeID),
			zap.String("category", string(entry.Category)),
			zap.String("amount", entry.Amount.StringFixed(moneyPlaces)),
			zap.String("period", period.String()),
		)
		s.recordAudit(ctx, entry.TenantID, "payroll."+string(entry.Category)+".post", "ledger_entry", entry.ID, entry)
	}

	if !alwaysRefresh && !hasRecord {
		return SalaryRecord{}, nil
	}

	record, err := s.computeAndStore(ctx, entry.TenantID, entry.EmployeeID, period)
	switch {
	case err == nil:
		return record, nil
	case errors.Is(err, ErrRecordAlreadyPaid):
		// Marked paid between the status check and the refresh. The cash
		// movement stands; the frozen record is reported as is.
		s.log.Warn("record marked paid while posting",
			zap.String("tenant_id", entry.TenantID),
			zap.String("employee_id", entry.EmployeeID),
			zap.String("period", period.String()),
		)
		return record, nil
	default:
		return SalaryRecord{}, fmt.Errorf("refresh salary record after posting: %w", err)
	}
}

func (s *Service) prepareEntry(period Period, entry *LedgerEntry) error {
	if !period.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, period)
	}
	if strings.TrimSpace(entry.EmployeeID) == "" {
		return ErrEmployeeNotFound
	}
	if !entry.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	entry.IdempotencyKey = strings.TrimSpace(entry.IdempotencyKey)
	if entry.IdempotencyKey == "" {
		return ErrIdempotencyKeyRequired
	}
	if entry.Mode == "" {
		entry.Mode = PaymentModeCash
	}
	entry.DateSupplied = !entry.Date.IsZero()
	if entry.Date.IsZero() {
		entry.Date = period.Clamp(s.now())
	} else if !period.Contains(entry.Date) {
		return fmt.Errorf("%s entry dated %s: %w", entry.Category, entry.Date.Format(dateLayout), ErrOutsidePeriod)
	}
	entry.Amount = entry.Amount.RoundBank(moneyPlaces)
	if entry.Amount.IsZero() {
		return ErrInvalidAmount
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = s.now()
	return nil
}

// MarkPaid records the explicit "salary paid" action. It assumes the cash
// movement is already in the ledger and never writes one itself.
func (s *Service) MarkPaid(ctx context.Context, tenantID, recordID string) (SalaryRecord, error) {
	record, err := s.lifecycle.MarkPaid(ctx, tenantID, recordID)
	if err != nil {
		return SalaryRecord{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordMarkedPaid()
	}
	s.log.Info("salary record marked paid",
		zap.String("tenant_id", tenantID),
		zap.String("record_id", record.ID),
		zap.String("employee_id", record.EmployeeID),
		zap.String("period", record.Period.String()),
	)
	s.recordAudit(ctx, tenantID, "payroll.mark_paid", "salary_record", record.ID, record)
	return record, nil
}

func (s *Service) GeneratePayslip(ctx context.Context, tenantID, recordID string) (PayslipSnapshot, error) {
	return s.lifecycle.GeneratePayslip(ctx, tenantID, recordID)
}

func (s *Service) ListForPeriod(ctx context.Context, tenantID string, period Period) ([]SalaryRecord, error) {
	return s.lifecycle.ListForPeriod(ctx, tenantID, period)
}

func (s *Service) recordAudit(ctx context.Context, tenantID, action, entityType, entityID string, details any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, tenantID, action, entityType, entityID, details)
}
