package config

import (
	"fmt"
	"sort"
	"strings"

	"keyvalidator/internal/catalog"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding. Path is a dotted path into the job
// (e.g. "report.db.kind", "dictionary.surjective.ssm_q").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// knownStorage lists the report database kinds built into the binary.
var knownStorage = map[string]struct{}{
	"sqlite":   {},
	"postgres": {},
	"mssql":    {},
	"mysql":    {},
}

// ValidateJob lints a job without touching the filesystem. It does not
// mutate j.
func ValidateJob(j Job) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(j.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels metrics and persisted error rows")
	}

	if strings.TrimSpace(j.Input.SubmissionDir) == "" {
		add(SeverityError, "input.submission_dir", "submission_dir is required")
	}
	if strings.TrimSpace(j.Input.SystemDir) == "" {
		add(SeverityWarning, "input.system_dir", "system_dir is empty; submissions with %s files will fail", catalog.MethArrayP)
	}

	switch j.Dictionary.Kind {
	case "", "hardcoded":
	case "dynamic":
		if strings.TrimSpace(j.Dictionary.Path) == "" {
			add(SeverityError, "dictionary.path", "dynamic dictionary requires a schema document path")
		}
	default:
		add(SeverityError, "dictionary.kind", "unknown dictionary kind %q (want hardcoded or dynamic)", j.Dictionary.Kind)
	}
	for _, name := range sortedKeys(j.Dictionary.Surjective) {
		if _, err := catalog.ParseFileType(name); err != nil {
			add(SeverityError, "dictionary.surjective."+name, "unknown file type")
		}
	}
	for _, name := range sortedKeys(j.Dictionary.RowChecks) {
		if _, err := catalog.ParseFileType(name); err != nil {
			add(SeverityError, "dictionary.row_checks."+name, "unknown file type")
		}
	}

	if c := j.Parser.Options.Rune("comma", '\t'); c != '\t' {
		add(SeverityWarning, "parser.options.comma", "submission files are tab-delimited; got %q", c)
	}

	if strings.TrimSpace(j.Report.Path) == "" && j.Report.DB == nil {
		add(SeverityWarning, "report", "no report path or database configured; errors are only counted")
	}
	if db := j.Report.DB; db != nil {
		if _, ok := knownStorage[strings.ToLower(db.Kind)]; !ok {
			add(SeverityError, "report.db.kind", "unknown storage kind %q; ensure a matching backend is registered", db.Kind)
		}
		if strings.TrimSpace(db.DSN) == "" {
			add(SeverityError, "report.db.dsn", "dsn is required")
		}
		if db.BatchSize < 0 {
			add(SeverityError, "report.db.batch_size", "batch_size must be >= 0")
		}
	}
	if up := j.Report.Upload; up != nil {
		if strings.TrimSpace(up.Endpoint) == "" {
			add(SeverityError, "report.upload.endpoint", "endpoint is required")
		}
		if strings.TrimSpace(up.Bucket) == "" {
			add(SeverityError, "report.upload.bucket", "bucket is required")
		}
		if strings.TrimSpace(j.Report.Path) == "" {
			add(SeverityError, "report.upload", "upload needs report.path to produce a file")
		}
	}

	if j.Runtime.FileWorkers < 0 {
		add(SeverityError, "runtime.file_workers", "must be >= 0")
	}
	if j.Runtime.CategoryWorkers < 0 {
		add(SeverityError, "runtime.category_workers", "must be >= 0")
	}

	switch j.Metrics.Backend {
	case "", "none":
	case "pushgateway":
		if j.Metrics.PushgatewayURL == "" {
			add(SeverityError, "metrics.pushgateway_url", "required for the pushgateway backend")
		}
	case "datadog":
		if j.Metrics.DatadogAddr == "" {
			add(SeverityWarning, "metrics.datadog_addr", "empty; defaulting to 127.0.0.1:8125")
		}
	default:
		add(SeverityError, "metrics.backend", "unknown metrics backend %q", j.Metrics.Backend)
	}

	return issues
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
