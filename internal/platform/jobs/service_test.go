package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"backoffice/internal/domain/payroll"
	"backoffice/internal/platform/db/dbtest"
)

type fakeRunner struct {
	calls  []string
	result payroll.BatchResult
	err    error
}

func (f *fakeRunner) ComputeForPeriod(_ context.Context, tenantID string, period payroll.Period, _ string) (payroll.BatchResult, error) {
	f.calls = append(f.calls, tenantID+"@"+period.String())
	return f.result, f.err
}

func TestComputePayrollDetails(t *testing.T) {
	runner := &fakeRunner{result: payroll.BatchResult{
		Records:  make([]payroll.SalaryRecord, 2),
		Failures: make([]payroll.BatchFailure, 1),
	}}
	s := New(nil, runner, 0, zaptest.NewLogger(t))
	period := payroll.Period{Year: 2024, Month: time.March}

	details, err := s.computePayroll(context.Background(), "tenant-1", period)
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-1@2024-03"}, runner.calls)
	assert.Equal(t, map[string]any{
		"period":    "2024-03",
		"computed":  2,
		"failed":    1,
		"skipped":   0,
		"cancelled": false,
	}, details)

	runner.err = errors.New("boom")
	_, err = s.computePayroll(context.Background(), "tenant-1", period)
	assert.Error(t, err)
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	s := New(nil, &fakeRunner{}, 0, zaptest.NewLogger(t))
	s.queue = make(chan job, 1)

	s.Enqueue(JobPayrollCompute, "tenant-1", func(context.Context) (any, error) { return nil, nil })
	s.Enqueue(JobPayrollCompute, "tenant-2", func(context.Context) (any, error) { return nil, nil })

	require.Len(t, s.queue, 1)
	queued := <-s.queue
	assert.Equal(t, "tenant-1", queued.TenantID)
}

func TestScheduledPeriodsIncludePreviousMonth(t *testing.T) {
	got := scheduledPeriods(time.Date(2024, time.March, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, []payroll.Period{{Year: 2024, Month: time.February}, {Year: 2024, Month: time.March}}, got)

	got = scheduledPeriods(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []payroll.Period{{Year: 2023, Month: time.December}, {Year: 2024, Month: time.January}}, got)
}

func TestEnqueuePayrollQueuesPreviousAndCurrentPeriod(t *testing.T) {
	pool := dbtest.Open(t)
	tenantID := dbtest.Tenant(t, pool)
	ctx := context.Background()

	runner := &fakeRunner{}
	s := New(pool, runner, 0, zaptest.NewLogger(t))
	s.queue = make(chan job, 1<<16)
	s.now = func() time.Time { return time.Date(2024, time.April, 2, 6, 0, 0, 0, time.UTC) }

	require.NoError(t, s.EnqueuePayroll(ctx))
	for len(s.queue) > 0 {
		j := <-s.queue
		if j.TenantID != tenantID {
			continue
		}
		_, err := j.Run(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{tenantID + "@2024-03", tenantID + "@2024-04"}, runner.calls)
}

func TestRunNowRecordsJobRun(t *testing.T) {
	pool := dbtest.Open(t)
	tenantID := dbtest.Tenant(t, pool)
	ctx := context.Background()

	s := New(pool, &fakeRunner{}, 0, zaptest.NewLogger(t))
	_, err := s.RunNow(ctx, JobPayrollCompute, tenantID, func(context.Context) (any, error) {
		return map[string]any{"computed": 1}, nil
	})
	require.NoError(t, err)

	var status string
	require.NoError(t, pool.QueryRow(ctx, `
    SELECT status FROM job_runs WHERE tenant_id = $1 ORDER BY started_at DESC LIMIT 1
  `, tenantID).Scan(&status))
	assert.Equal(t, "completed", status)

	_, err = s.RunNow(ctx, JobPayrollCompute, tenantID, func(context.Context) (any, error) {
		return nil, errors.New("failed")
	})
	require.Error(t, err)
	require.NoError(t, pool.QueryRow(ctx, `
    SELECT status FROM job_runs WHERE tenant_id = $1 AND status = 'failed' LIMIT 1
  `, tenantID).Scan(&status))
	assert.Equal(t, "failed", status)
}
