package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/config"
	"keyvalidator/internal/datasource/file"
	"keyvalidator/internal/dictionary"
	"keyvalidator/internal/parser/tsv"
	"keyvalidator/internal/report"
	"keyvalidator/internal/storage"
	"keyvalidator/internal/submission"
)

// outcome is what a run hands back to main.
type outcome struct {
	Result     submission.Result
	Counts     map[catalog.ErrorKind]int64
	ReportPath string
	// UploadKey is the object key of the uploaded report, if any.
	UploadKey string
}

// buildDictionary realizes the configured dictionary and wraps it in the
// precomputed cache used on the row path.
func buildDictionary(cfg config.Dictionary) (dictionary.Dictionary, error) {
	var inner dictionary.Dictionary
	switch strings.ToLower(cfg.Kind) {
	case "", "hardcoded":
		var opts []dictionary.Option
		for name, on := range cfg.Surjective {
			ft, err := catalog.ParseFileType(name)
			if err != nil {
				return nil, fmt.Errorf("dictionary.surjective: %w", err)
			}
			opts = append(opts, dictionary.WithSurjective(ft, on))
		}
		for name, on := range cfg.RowChecks {
			ft, err := catalog.ParseFileType(name)
			if err != nil {
				return nil, fmt.Errorf("dictionary.row_checks: %w", err)
			}
			opts = append(opts, dictionary.WithRowChecks(ft, on))
		}
		inner = dictionary.NewHardcoded(opts...)
	case "dynamic":
		doc, err := dictionary.LoadDocument(cfg.Path)
		if err != nil {
			return nil, err
		}
		d, err := dictionary.NewDynamic(doc)
		if err != nil {
			return nil, err
		}
		inner = d
	default:
		return nil, fmt.Errorf("unknown dictionary kind %q", cfg.Kind)
	}
	cached, err := dictionary.NewCached(inner)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// openDBSink opens the configured database and starts a sink writing to it.
// The returned closer flushes the sink and releases the connection.
func openDBSink(ctx context.Context, db *config.DBConfig, job, runID string) (*report.DBSink, func() error, error) {
	spec := report.ErrorTable(db.Table)
	repo, err := storage.New(ctx, storage.Config{
		Kind:    db.Kind,
		DSN:     db.DSN,
		Table:   db.Table,
		Columns: spec.Columns(),
	})
	if err != nil {
		return nil, nil, err
	}
	if db.AutoCreateTable {
		if err := storage.EnsureTable(ctx, db.Kind, repo, spec); err != nil {
			repo.Close()
			return nil, nil, err
		}
	}
	sink := report.NewDBSink(ctx, repo, db.Table, job, runID, db.BatchSize)
	closer := func() error {
		defer repo.Close()
		st, err := sink.Close()
		log.Printf("report: db sink kind=%s table=%s rows=%d batches=%d", db.Kind, db.Table, st.Rows, st.Batches)
		return err
	}
	return sink, closer, nil
}

// run validates the submission described by job and writes every configured
// report. A non-nil error means the run could not complete; key errors alone
// are not an error.
func run(ctx context.Context, job config.Job, runID string) (outcome, error) {
	var out outcome
	start := time.Now()

	dict, err := buildDictionary(job.Dictionary)
	if err != nil {
		return out, fmt.Errorf("dictionary: %w", err)
	}

	dir := job.Report.Path
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return out, fmt.Errorf("report dir: %w", err)
	}
	out.ReportPath = filepath.Join(dir, report.DefaultFileName)
	jw, err := report.CreateJSONFile(out.ReportPath)
	if err != nil {
		return out, err
	}
	sinks := []report.Reporter{jw}
	closers := []func() error{jw.Close}

	if job.Report.DB != nil {
		sink, closeSink, err := openDBSink(ctx, job.Report.DB, job.Job, runID)
		if err != nil {
			_ = jw.Close()
			return out, fmt.Errorf("report db: %w", err)
		}
		sinks = append(sinks, sink)
		closers = append(closers, closeSink)
	}

	counting := report.NewCounting(job.Job, report.Multi(sinks...))
	proc := submission.New(
		dict,
		file.Lister{SubmissionDir: job.Input.SubmissionDir, SystemDir: job.Input.SystemDir},
		tsv.Source{Options: job.Parser.Options},
		counting,
		submission.Options{
			FileWorkers:     job.Runtime.FileWorkers,
			CategoryWorkers: job.Runtime.CategoryWorkers,
			Job:             job.Job,
		},
	)

	res, runErr := proc.ProcessSubmission(ctx)
	out.Result = res
	out.Counts = counting.Counts()
	counting.Flush()

	var closeErrs []error
	for _, c := range closers {
		if err := c(); err != nil {
			closeErrs = append(closeErrs, err)
		}
	}
	if runErr != nil {
		return out, runErr
	}
	if err := errors.Join(closeErrs...); err != nil {
		return out, fmt.Errorf("report: %w", err)
	}

	if up := job.Report.Upload; up != nil {
		u, err := report.NewUploader(report.UploadConfig{
			Endpoint:  up.Endpoint,
			Region:    up.Region,
			AccessKey: up.AccessKey,
			SecretKey: up.SecretKey,
			Bucket:    up.Bucket,
			Prefix:    up.Prefix,
			UseSSL:    up.UseSSL,
		})
		if err != nil {
			return out, err
		}
		key, err := u.Upload(ctx, runID, out.ReportPath)
		if err != nil {
			return out, err
		}
		out.UploadKey = key
		log.Printf("report: uploaded bucket=%s key=%s", up.Bucket, key)
	}

	for _, kind := range catalog.ErrorKinds() {
		if n := out.Counts[kind]; n > 0 {
			log.Printf("summary: kind=%s errors=%d", kind, n)
		}
	}
	log.Printf("summary: job=%s run_id=%s categories=%v errors=%d report=%s elapsed=%s",
		job.Job, runID, res.Categories, jw.Written(), out.ReportPath, time.Since(start).Truncate(time.Millisecond))
	return out, nil
}
