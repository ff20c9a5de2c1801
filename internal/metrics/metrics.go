// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from a validation run.
//
// It exposes a narrow interface (Backend) focused on counters and timing data
// (histograms) and a global, pluggable backend that defaults to a no-op
// implementation, so metrics are always safe to call even when no real backend
// is configured. Concrete systems live in subpackages (prompush, datadog).
package metrics

import "time"

// Metric names shared by the helpers below and the backends.
const (
	StepTotal           = "kv_step_total"
	StepDurationSeconds = "kv_step_duration_seconds"
	RowsTotal           = "kv_rows_total"
	KeyErrorsTotal      = "kv_key_errors_total"
	ReportBatchesTotal  = "kv_report_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency and success/failure of one processing step,
// typically a file type ("donor") or a surjectivity pass ("surjection").
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows counts rows read for a file type.
func RecordRows(job, fileType string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":       job,
		"file_type": fileType,
	})
}

// RecordKeyErrors counts reported key errors of one kind
// (UNIQUENESS, RELATION, ...).
func RecordKeyErrors(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(KeyErrorsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordReportBatches counts error batches flushed to a database sink.
func RecordReportBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(ReportBatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
