package jobs

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"backoffice/internal/domain/payroll"
	"backoffice/internal/platform/querier"
)

const JobPayrollCompute = "payroll_compute"

// PayrollRunner is the slice of payroll.Service the scheduler drives.
type PayrollRunner interface {
	ComputeForPeriod(ctx context.Context, tenantID string, period payroll.Period, employeeID string) (payroll.BatchResult, error)
}

type Service struct {
	DB       querier.Querier
	runner   PayrollRunner
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
	queue    chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(db querier.Querier, runner PayrollRunner, interval time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		DB:       db,
		runner:   runner,
		interval: interval,
		log:      log.Named("jobs"),
		now:      func() time.Time { return time.Now().UTC() },
		queue:    make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.interval > 0 {
		go s.schedulePayroll(ctx, s.interval)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
	default:
		s.log.Warn("job queue full", zap.String("job_type", jobType), zap.String("tenant_id", tenantID))
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

// EnqueuePayroll queues a computation of the previous and current periods
// for every tenant. Each tenant and period runs as its own job so one failure
// does not hold back the rest.
func (s *Service) EnqueuePayroll(ctx context.Context) error {
	tenants, err := s.listTenants(ctx)
	if err != nil {
		return err
	}
	periods := scheduledPeriods(s.now())
	for _, tenantID := range tenants {
		tenant := tenantID
		for _, p := range periods {
			period := p
			s.Enqueue(JobPayrollCompute, tenant, func(ctx context.Context) (any, error) {
				return s.computePayroll(ctx, tenant, period)
			})
		}
	}
	return nil
}

// scheduledPeriods returns the month before now and the month of now.
// Attendance and advances posted after a month ends still reach its unpaid
// records this way; paid records are reported as failures and left alone.
func scheduledPeriods(now time.Time) []payroll.Period {
	current := payroll.PeriodOf(now)
	previous := payroll.PeriodOf(current.Start().AddDate(0, 0, -1))
	return []payroll.Period{previous, current}
}

func (s *Service) computePayroll(ctx context.Context, tenantID string, period payroll.Period) (any, error) {
	result, err := s.runner.ComputeForPeriod(ctx, tenantID, period, "")
	details := map[string]any{
		"period":    period.String(),
		"computed":  len(result.Records),
		"failed":    len(result.Failures),
		"skipped":   len(result.Skipped),
		"cancelled": result.Cancelled,
	}
	return details, err
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.log.Warn("job run failed", zap.String("job_type", j.Type), zap.String("tenant_id", j.TenantID), zap.Error(err))
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id::text
  `, j.TenantID, j.Type, "running").Scan(&runID); err != nil {
		s.log.Warn("job run insert failed", zap.Error(err))
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		s.log.Warn("job details marshal failed", zap.Error(marshalErr))
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(context.WithoutCancel(ctx), `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			s.log.Warn("job run update failed", zap.Error(updErr))
		}
	}
	return details, err
}

func (s *Service) schedulePayroll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.EnqueuePayroll(ctx); err != nil {
				s.log.Warn("payroll scheduler tenant lookup failed", zap.Error(err))
			}
		}
	}
}

func (s *Service) listTenants(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `SELECT id::text FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
