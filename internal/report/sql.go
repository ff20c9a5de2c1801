package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"keyvalidator/internal/ddl"
	"keyvalidator/internal/metrics"
	"keyvalidator/internal/storage"
)

// DefaultBatchSize is the number of error rows per CopyFrom call.
const DefaultBatchSize = 5000

// ErrSinkClosed is returned by Report after Close.
var ErrSinkClosed = errors.New("report: sink closed")

// ErrorTable describes the table a DBSink writes to. Slice-valued fields are
// stored as JSON arrays.
func ErrorTable(table string) ddl.TableSpec {
	return ddl.TableSpec{
		Table: table,
		Fields: []ddl.Field{
			{Name: "run_id", Type: "string", Required: true},
			{Name: "kind", Type: "string", Required: true},
			{Name: "file_type", Type: "string", Required: true},
			{Name: "file_name", Type: "string"},
			{Name: "line_number", Type: "bigint", Required: true},
			{Name: "field_names", Type: "string"},
			{Name: "value", Type: "string"},
			{Name: "other_type", Type: "string"},
			{Name: "other_fields", Type: "string"},
		},
	}
}

// DBSink streams errors into a storage.Repository. Report enqueues a row and
// a background loader flushes batches via CopyFrom.
type DBSink struct {
	runID   string
	columns []string
	rows    chan []any
	done    chan struct{}

	closeOnce sync.Once
	closed    chan struct{}

	stats storage.LoadStats
	err   error
}

// NewDBSink starts the loader goroutine. job labels batch metrics; runID is
// written into every row so several runs can share a table.
func NewDBSink(ctx context.Context, repo storage.Repository, table, job, runID string, batchSize int) *DBSink {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	s := &DBSink{
		runID:   runID,
		columns: ErrorTable(table).Columns(),
		rows:    make(chan []any, batchSize),
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		n, err := repo.CopyFrom(ctx, columns, rows)
		if err == nil {
			metrics.RecordReportBatches(job, 1)
		}
		return n, err
	}
	go func() {
		defer close(s.done)
		s.stats, s.err = storage.LoadBatches(ctx, s.columns, s.rows, batchSize, copyFn)
	}()
	return s
}

func (s *DBSink) Report(e Error) error {
	row, err := s.row(e)
	if err != nil {
		return err
	}
	select {
	case <-s.closed:
		return ErrSinkClosed
	default:
	}
	select {
	case s.rows <- row:
		return nil
	case <-s.done:
		if s.err != nil {
			return fmt.Errorf("report: database sink: %w", s.err)
		}
		return ErrSinkClosed
	}
}

// Close flushes pending rows and waits for the loader. Report must not be
// called concurrently with Close.
func (s *DBSink) Close() (storage.LoadStats, error) {
	s.closeOnce.Do(func() {
		close(s.closed)
		close(s.rows)
	})
	<-s.done
	return s.stats, s.err
}

func (s *DBSink) row(e Error) ([]any, error) {
	fields, err := jsonArray(e.FieldNames)
	if err != nil {
		return nil, err
	}
	value, err := jsonArray(e.Value)
	if err != nil {
		return nil, err
	}
	var other any
	if len(e.Params.OtherFields) > 0 {
		if other, err = jsonArray(e.Params.OtherFields); err != nil {
			return nil, err
		}
	}
	var otherType any
	if e.Params.OtherType != "" {
		otherType = string(e.Params.OtherType)
	}
	var fileName any
	if e.FileName != "" {
		fileName = e.FileName
	}
	return []any{
		s.runID,
		string(e.Kind),
		string(e.FileType),
		fileName,
		e.Line,
		fields,
		value,
		otherType,
		other,
	}, nil
}

func jsonArray(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("report: encode column: %w", err)
	}
	return string(b), nil
}
