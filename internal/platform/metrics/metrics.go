package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector keeps process-local counters for HTTP traffic and payroll
// activity. It satisfies payroll.Recorder.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	recordsComputed uint64
	batchFailures   uint64
	markedPaid      uint64

	mu     sync.Mutex
	posted map[string]uint64
}

func New() *Collector {
	return &Collector{posted: map[string]uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordComputed(n int) {
	if n > 0 {
		atomic.AddUint64(&c.recordsComputed, uint64(n))
	}
}

func (c *Collector) RecordBatchFailures(n int) {
	if n > 0 {
		atomic.AddUint64(&c.batchFailures, uint64(n))
	}
}

func (c *Collector) RecordPaymentPosted(category string) {
	c.mu.Lock()
	c.posted[category]++
	c.mu.Unlock()
}

func (c *Collector) RecordMarkedPaid() {
	atomic.AddUint64(&c.markedPaid, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	posted := make(map[string]uint64, len(c.posted))
	for category, n := range c.posted {
		posted[category] = n
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":        total,
		"errorsTotal":          errs,
		"rateLimitedTotal":     limited,
		"avgDurationMs":        avg,
		"totalDurationMs":      totalMs,
		"salaryRecordsTotal":   atomic.LoadUint64(&c.recordsComputed),
		"batchFailuresTotal":   atomic.LoadUint64(&c.batchFailures),
		"markedPaidTotal":      atomic.LoadUint64(&c.markedPaid),
		"ledgerPostingsByKind": posted,
	}
}
