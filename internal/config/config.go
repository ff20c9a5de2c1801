// Package config defines the configuration model for a validation run. A job
// file names the submission to check, the dictionary to check it against, and
// where key errors go. Files are JSON or YAML; environment variables (usually
// from a .env file) override the input directories and metrics settings.
//
// Example (YAML):
//
//	job: icgc-release-27
//	input:
//	  submission_dir: /data/submission/BRCA-UK
//	  system_dir: /data/system
//	dictionary:
//	  kind: hardcoded
//	  surjective: { ssm_p: false }
//	parser:
//	  options: { has_header: true, trim_space: false }
//	report:
//	  path: /data/out
//	  db: { kind: sqlite, dsn: /data/out/kv.db, table: kv_errors, auto_create_table: true }
//	runtime: { file_workers: 4, category_workers: 2 }
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvSubmissionDir  = "KV_SUBMISSION_DIR"
	EnvSystemDir      = "KV_SYSTEM_DIR"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvDatadogAddr    = "DD_AGENT_ADDR"
)

// Job is the top-level object decoded from a job file.
type Job struct {
	// Job names the run; it labels metrics and every persisted error row.
	Job        string     `json:"job" yaml:"job"`
	Input      Input      `json:"input" yaml:"input"`
	Dictionary Dictionary `json:"dictionary" yaml:"dictionary"`
	Parser     Parser     `json:"parser" yaml:"parser"`
	Report     Report     `json:"report" yaml:"report"`
	Runtime    Runtime    `json:"runtime" yaml:"runtime"`
	Metrics    Metrics    `json:"metrics" yaml:"metrics"`
}

// Input locates submission and reference files.
type Input struct {
	SubmissionDir string `json:"submission_dir" yaml:"submission_dir"`
	// SystemDir holds reference-only types such as meth_array_probes.
	SystemDir string `json:"system_dir" yaml:"system_dir"`
}

// Dictionary selects the schema realization.
type Dictionary struct {
	// Kind is "hardcoded" (default) or "dynamic".
	Kind string `json:"kind" yaml:"kind"`
	// Path is the schema document for the dynamic kind.
	Path string `json:"path" yaml:"path"`
	// Surjective overrides the surjectivity allow-list per child file type.
	Surjective map[string]bool `json:"surjective" yaml:"surjective"`
	// RowChecks overrides the "row resolves a PK or FK" check per file type.
	RowChecks map[string]bool `json:"row_checks" yaml:"row_checks"`
}

// Parser carries row-source options: has_header (bool, default true),
// trim_space (bool, default false), comma (string, default tab).
type Parser struct {
	Options Options `json:"options" yaml:"options"`
}

// Report configures the error sinks. Path receives the JSON-lines report; DB
// and Upload are optional.
type Report struct {
	Path   string    `json:"path" yaml:"path"`
	DB     *DBConfig `json:"db" yaml:"db"`
	Upload *Upload   `json:"upload" yaml:"upload"`
}

// DBConfig configures the database error sink.
type DBConfig struct {
	Kind            string `json:"kind" yaml:"kind"`
	DSN             string `json:"dsn" yaml:"dsn"`
	Table           string `json:"table" yaml:"table"`
	AutoCreateTable bool   `json:"auto_create_table" yaml:"auto_create_table"`
	BatchSize       int    `json:"batch_size" yaml:"batch_size"`
}

// Upload configures copying the finished report to S3-compatible storage.
type Upload struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Region    string `json:"region" yaml:"region"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
}

// Runtime controls concurrency.
type Runtime struct {
	// FileWorkers scans files of one type concurrently.
	FileWorkers int `json:"file_workers" yaml:"file_workers"`
	// CategoryWorkers runs independent experimental categories concurrently.
	CategoryWorkers int `json:"category_workers" yaml:"category_workers"`
}

// Metrics selects a metrics backend: "", "none", "pushgateway" or "datadog".
type Metrics struct {
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
}

// Load reads a job file. .yaml and .yml are decoded as YAML, everything else
// as JSON with unknown fields rejected.
func Load(path string) (Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var j Job
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&j); err != nil {
			return Job{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&j); err != nil {
			return Job{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	j.ApplyDefaults()
	return j, nil
}

// ApplyDefaults fills zero values.
func (j *Job) ApplyDefaults() {
	if j.Dictionary.Kind == "" {
		j.Dictionary.Kind = "hardcoded"
	}
	if j.Parser.Options == nil {
		j.Parser.Options = Options{}
	}
	if j.Runtime.FileWorkers <= 0 {
		j.Runtime.FileWorkers = 1
	}
	if j.Runtime.CategoryWorkers <= 0 {
		j.Runtime.CategoryWorkers = 1
	}
	if j.Report.DB != nil && j.Report.DB.Table == "" {
		j.Report.DB.Table = "kv_errors"
	}
}

// ApplyEnv overrides fields from the environment. getenv is usually
// os.Getenv; empty values leave the field unchanged.
func (j *Job) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&j.Input.SubmissionDir, EnvSubmissionDir)
	set(&j.Input.SystemDir, EnvSystemDir)
	set(&j.Metrics.Backend, EnvMetricsBackend)
	set(&j.Metrics.PushgatewayURL, EnvPushgatewayURL)
	set(&j.Metrics.DatadogAddr, EnvDatadogAddr)
}
