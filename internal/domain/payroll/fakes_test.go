package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryRecords struct {
	mu      sync.Mutex
	records map[string]SalaryRecord
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{records: map[string]SalaryRecord{}}
}

func recordKey(tenantID, employeeID string, period Period) string {
	return tenantID + "/" + employeeID + "/" + period.String()
}

func (m *memoryRecords) Upsert(_ context.Context, record SalaryRecord, now time.Time) (SalaryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := recordKey(record.TenantID, record.EmployeeID, record.Period)
	existing, ok := m.records[key]
	if ok && existing.Status == StatusPaid {
		return existing, ErrRecordAlreadyPaid
	}
	if ok {
		record.ID = existing.ID
		record.ComputedAt = existing.ComputedAt
		if !existing.SameFigures(record) {
			record.ComputedAt = now
		}
	} else {
		record.ID = uuid.NewString()
		record.ComputedAt = now
	}
	record.Status = StatusComputed
	m.records[key] = record
	return record, nil
}

func (m *memoryRecords) MarkPaid(_ context.Context, tenantID, recordID string, now time.Time) (SalaryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, record := range m.records {
		if record.ID != recordID || record.TenantID != tenantID {
			continue
		}
		if record.Status != StatusComputed {
			return SalaryRecord{}, ErrInvalidStateTransition
		}
		record.Status = StatusPaid
		paidAt := now
		record.PaidAt = &paidAt
		m.records[key] = record
		return record, nil
	}
	return SalaryRecord{}, ErrNotFound
}

func (m *memoryRecords) Get(_ context.Context, tenantID, recordID string) (SalaryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.ID == recordID && record.TenantID == tenantID {
			return record, nil
		}
	}
	return SalaryRecord{}, ErrNotFound
}

func (m *memoryRecords) GetByKey(_ context.Context, tenantID, employeeID string, period Period) (SalaryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[recordKey(tenantID, employeeID, period)]
	if !ok {
		return SalaryRecord{}, ErrNotFound
	}
	return record, nil
}

func (m *memoryRecords) ListForPeriod(_ context.Context, tenantID string, period Period) ([]SalaryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SalaryRecord
	for _, record := range m.records {
		if record.TenantID == tenantID && record.Period == period {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

type memoryProfiles struct {
	profiles map[string]EmployeeProfile
	order    []string
}

func newMemoryProfiles(profiles ...EmployeeProfile) *memoryProfiles {
	m := &memoryProfiles{profiles: map[string]EmployeeProfile{}}
	for _, p := range profiles {
		m.profiles[p.TenantID+"/"+p.ID] = p
		m.order = append(m.order, p.ID)
	}
	return m
}

func (m *memoryProfiles) Get(_ context.Context, tenantID, employeeID string) (EmployeeProfile, error) {
	profile, ok := m.profiles[tenantID+"/"+employeeID]
	if !ok {
		return EmployeeProfile{}, ErrEmployeeNotFound
	}
	return profile, nil
}

func (m *memoryProfiles) ListActiveIDs(_ context.Context, tenantID string) ([]string, error) {
	var ids []string
	for _, id := range m.order {
		if _, ok := m.profiles[tenantID+"/"+id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memoryAttendance struct {
	mu       sync.Mutex
	records  map[string][]AttendanceRecord
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func newMemoryAttendance() *memoryAttendance {
	return &memoryAttendance{records: map[string][]AttendanceRecord{}}
}

func (m *memoryAttendance) set(tenantID, employeeID string, records []AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[tenantID+"/"+employeeID] = records
}

func (m *memoryAttendance) GetRecords(ctx context.Context, tenantID, employeeID string, start, end time.Time) ([]AttendanceRecord, error) {
	current := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.peak.Load()
		if current <= peak || m.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AttendanceRecord
	for _, record := range m.records[tenantID+"/"+employeeID] {
		if !record.Date.Before(start) && !record.Date.After(end) {
			out = append(out, record)
		}
	}
	return out, nil
}

type memoryLedger struct {
	mu      sync.Mutex
	entries []LedgerEntry
	byKey   map[string]LedgerEntry
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{byKey: map[string]LedgerEntry{}}
}

func (m *memoryLedger) SumByCategory(_ context.Context, tenantID, employeeID string, category Category, start, end time.Time) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, entry := range m.entries {
		if entry.TenantID != tenantID || entry.EmployeeID != employeeID || entry.Category != category {
			continue
		}
		if entry.Date.Before(start) || entry.Date.After(end) {
			continue
		}
		total = total.Add(entry.Amount)
	}
	return total, nil
}

func (m *memoryLedger) Post(_ context.Context, entry LedgerEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := entry.TenantID + "/" + entry.IdempotencyKey
	if existing, ok := m.byKey[key]; ok {
		if !existing.SamePosting(entry) {
			return false, ErrIdempotencyConflict
		}
		return false, nil
	}
	m.byKey[key] = entry
	m.entries = append(m.entries, entry)
	return true, nil
}

func (m *memoryLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type memoryGuard struct {
	mu     sync.Mutex
	held   map[string]string
	issued int
}

func (g *memoryGuard) Acquire(_ context.Context, tenantID, key string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held == nil {
		g.held = map[string]string{}
	}
	if _, ok := g.held[tenantID+"/"+key]; ok {
		return "", false, nil
	}
	g.issued++
	token := fmt.Sprintf("tok-%d", g.issued)
	g.held[tenantID+"/"+key] = token
	return token, true, nil
}

func (g *memoryGuard) Release(_ context.Context, tenantID, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[tenantID+"/"+key] != token {
		return errors.New("lock not held")
	}
	delete(g.held, tenantID+"/"+key)
	return nil
}

type countingRecorder struct {
	computed atomic.Int64
	failures atomic.Int64
	posted   atomic.Int64
	paid     atomic.Int64
}

func (r *countingRecorder) RecordComputed(n int)       { r.computed.Add(int64(n)) }
func (r *countingRecorder) RecordBatchFailures(n int)  { r.failures.Add(int64(n)) }
func (r *countingRecorder) RecordPaymentPosted(string) { r.posted.Add(1) }
func (r *countingRecorder) RecordMarkedPaid()          { r.paid.Add(1) }

type auditEntry struct {
	action   string
	entityID string
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *memoryAudit) Record(_ context.Context, _ string, action, _ string, entityID string, _ any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, entityID: entityID})
}

func (a *memoryAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.action)
	}
	return out
}
