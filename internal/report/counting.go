package report

import (
	"sync"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/metrics"
)

// Counting wraps a Reporter, tallying errors per kind and forwarding the
// totals to the metrics backend on Flush.
type Counting struct {
	next Reporter
	job  string

	mu     sync.Mutex
	counts map[catalog.ErrorKind]int64
}

// NewCounting returns a Counting reporter; next may be nil to only count.
func NewCounting(job string, next Reporter) *Counting {
	return &Counting{next: next, job: job, counts: make(map[catalog.ErrorKind]int64)}
}

func (c *Counting) Report(e Error) error {
	c.mu.Lock()
	c.counts[e.Kind]++
	c.mu.Unlock()
	if c.next == nil {
		return nil
	}
	return c.next.Report(e)
}

// Counts returns a snapshot of errors seen per kind.
func (c *Counting) Counts() map[catalog.ErrorKind]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[catalog.ErrorKind]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Total is the number of errors seen.
func (c *Counting) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, v := range c.counts {
		n += v
	}
	return n
}

// Flush records the per-kind totals as metrics and resets them.
func (c *Counting) Flush() {
	c.mu.Lock()
	counts := c.counts
	c.counts = make(map[catalog.ErrorKind]int64)
	c.mu.Unlock()
	for _, kind := range catalog.ErrorKinds() {
		metrics.RecordKeyErrors(c.job, string(kind), counts[kind])
	}
}
