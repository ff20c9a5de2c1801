package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"keyvalidator/internal/config"
	"keyvalidator/internal/metrics"
	"keyvalidator/internal/metrics/datadog"
	"keyvalidator/internal/metrics/prompush"

	// register all backends with the storage factory.
	// the job file picks one for the error table, but every kind is built in.
	_ "keyvalidator/internal/storage/all"
)

// Exit codes.
const (
	exitOK        = 0
	exitFatal     = 1
	exitKeyErrors = 2
)

// main loads the job file, sets up metrics and validates one submission.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		runID             string
		validate          bool
		failOnErrors      bool
	)

	flag.StringVar(&cfgPath, "config", "configs/job.yaml", "job config path (.yaml, .yml or .json)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&runID, "run-id", "", "identifier stored with persisted errors (default: random UUID)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&failOnErrors, "fail-on-errors", false, "exit with status 2 when key errors are found")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if *verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	// A missing .env is fine; anything else is worth a line.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env: %v", err)
	}

	job, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	job.ApplyEnv(os.Getenv)
	if metricsBackendFlg != "" {
		job.Metrics.Backend = metricsBackendFlg
	}
	if pushGatewayURLFlg != "" {
		job.Metrics.PushgatewayURL = pushGatewayURLFlg
	}

	issues := config.ValidateJob(job)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(exitFatal)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(exitOK)
	}

	if runID == "" {
		runID = uuid.NewString()
	}
	os.Exit(execute(job, runID, *verbose, failOnErrors))
}

// execute runs the job and maps its outcome to an exit code. It is split from
// main so deferred metric flushes run before os.Exit.
func execute(job config.Job, runID string, verbose, failOnErrors bool) int {
	if flush := setupMetrics(job, verbose); flush != nil {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if verbose {
		log.Printf("job: name=%s run_id=%s submission=%s dictionary=%s file_workers=%d category_workers=%d",
			job.Job, runID, job.Input.SubmissionDir, job.Dictionary.Kind, job.Runtime.FileWorkers, job.Runtime.CategoryWorkers)
	}

	out, err := run(ctx, job, runID)
	if err != nil {
		log.Printf("run failed: %v", err)
		return exitFatal
	}
	if verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	if failOnErrors && out.Result.Errors() > 0 {
		return exitKeyErrors
	}
	return exitOK
}

// setupMetrics installs the configured metrics backend and returns its flush
// func, or nil when metrics are disabled.
func setupMetrics(job config.Job, verbose bool) func() {
	jobName := job.Job
	if jobName == "" {
		jobName = "keyvalidator"
	}
	flush := func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}

	switch job.Metrics.Backend {
	case "pushgateway":
		gwURL := job.Metrics.PushgatewayURL
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, job.Metrics.Backend, jobName)
		metrics.SetBackend(b)
		return flush

	case "datadog":
		addr := job.Metrics.DatadogAddr
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "keyvalidator.",
			GlobalTags: []string{"job:" + jobName},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", addr, job.Metrics.Backend, jobName)
		metrics.SetBackend(b)
		return flush

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", job.Metrics.Backend)
		}
		return nil

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", job.Metrics.Backend)
		return nil
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(exitFatal)
}
