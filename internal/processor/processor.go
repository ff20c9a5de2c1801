// Package processor checks the keys of one submission file row by row:
// primary-key uniqueness, foreign-key resolution against finalized parents,
// and collection of the foreign keys later needed for surjectivity.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/dictionary"
	"keyvalidator/internal/keys"
	"keyvalidator/internal/layout"
	"keyvalidator/internal/metrics"
	"keyvalidator/internal/parser/tsv"
	"keyvalidator/internal/report"
)

// ProgressEvery is the row interval between progress log lines.
const ProgressEvery = 1_000_000

var (
	// ErrStructural marks a file whose rows cannot be key-checked at all.
	ErrStructural = errors.New("processor: structurally invalid file")
	// ErrReporter marks a failure of the reporter, not of the input.
	ErrReporter = errors.New("processor: reporter failed")
)

// StructuralError locates a fatal problem. Line is 0 when the problem is not
// tied to a row.
type StructuralError struct {
	FileType catalog.FileType
	File     string
	Line     int64
	Err      error
}

func (e *StructuralError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s %s line %d: %v", e.FileType, e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.FileType, e.File, e.Err)
}

func (e *StructuralError) Unwrap() []error { return []error{ErrStructural, e.Err} }

// RowSource streams the rows of one file, projected onto columns.
// tsv.Source satisfies it.
type RowSource interface {
	Rows(ctx context.Context, path string, columns []string, fn tsv.RowFunc) (int64, error)
}

// Stats summarizes one processed file.
type Stats struct {
	Rows   int64
	Errors map[catalog.ErrorKind]int64
}

// Total is the number of key errors reported for the file.
func (s Stats) Total() int64 {
	var n int64
	for _, c := range s.Errors {
		n += c
	}
	return n
}

// Add folds o into s.
func (s *Stats) Add(o Stats) {
	s.Rows += o.Rows
	if s.Errors == nil {
		s.Errors = make(map[catalog.ErrorKind]int64, len(o.Errors))
	}
	for k, c := range o.Errors {
		s.Errors[k] += c
	}
}

// Inputs are the key sets one file reads and writes.
type Inputs struct {
	// PKs receives the file's primary keys.
	PKs *keys.PrimaryKeys
	// Refs are the finalized parents' keys, by parent type.
	Refs map[catalog.FileType]*keys.ReferencedPrimaryKeys
	// Encountered collects foreign keys of surjective relations, by parent
	// type.
	Encountered map[catalog.FileType]*keys.EncounteredForeignKeys
}

// FileProcessor checks files against a dictionary.
type FileProcessor struct {
	Dictionary dictionary.Dictionary
	Rows       RowSource
	Reporter   report.Reporter
	// Job labels metrics.
	Job string
}

// ProcessFile checks every row of path as a file of type ft. Key violations
// go to the reporter; the returned error is fatal for the file type.
func (p *FileProcessor) ProcessFile(ctx context.Context, ft catalog.FileType, path string, in Inputs) (Stats, error) {
	st := Stats{Errors: map[catalog.ErrorKind]int64{}}
	name := filepath.Base(path)
	fail := func(line int64, err error) error {
		return &StructuralError{FileType: ft, File: name, Line: line, Err: err}
	}

	kl, err := p.Dictionary.KeyLayout(ft)
	if err != nil {
		return st, fail(0, err)
	}
	if kl.HasPK() && in.PKs == nil {
		return st, fail(0, errors.New("no primary key accumulator"))
	}
	// Every parent view must exist before the first row is read.
	for _, r := range kl.Relations() {
		if in.Refs[r.Parent] == nil {
			return st, fail(0, fmt.Errorf("parent %s has not been finalized", r.Parent))
		}
		if r.Surjective && in.Encountered[r.Parent] == nil {
			return st, fail(0, fmt.Errorf("no foreign key accumulator toward %s", r.Parent))
		}
	}

	c := &fileCheck{
		p:      p,
		ft:     ft,
		name:   name,
		kl:     kl,
		in:     in,
		st:     &st,
		pkErr:  p.Dictionary.ErrorFieldNames(ft, catalog.Uniqueness, ""),
		parent: map[*layout.Relation]parentNames{},
	}
	for _, r := range kl.Relations() {
		kind := catalog.ErrorKindFor(r.Role)
		c.parent[r] = parentNames{
			fields: p.Dictionary.ErrorFieldNames(ft, kind, r.Parent),
			pk:     p.Dictionary.PrimaryKeyNames(r.Parent),
		}
	}

	start := time.Now()
	log.Printf("processor: start type=%s file=%s", ft, name)
	n, err := p.Rows.Rows(ctx, path, kl.FieldNames(), c.row)
	st.Rows = n
	metrics.RecordRows(p.Job, string(ft), n)
	if err != nil {
		var se *StructuralError
		if errors.As(err, &se) || errors.Is(err, ErrReporter) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return st, err
		}
		var le *tsv.LineError
		if errors.As(err, &le) {
			return st, fail(le.Line, le.Err)
		}
		return st, fail(0, err)
	}
	log.Printf("processor: done type=%s file=%s rows=%d errors=%d elapsed=%s",
		ft, name, st.Rows, st.Total(), time.Since(start).Truncate(time.Millisecond))
	return st, nil
}

type parentNames struct {
	fields []string // child-side names cited by relation errors
	pk     []string // parent's primary key names
}

// fileCheck holds the per-file state of ProcessFile.
type fileCheck struct {
	p      *FileProcessor
	ft     catalog.FileType
	name   string
	kl     *layout.KeyLayout
	in     Inputs
	st     *Stats
	rk     layout.RowKeys
	pkErr  []string
	parent map[*layout.Relation]parentNames
}

// row handles one data row. Rows arrive strictly in file order.
func (c *fileCheck) row(line int64, fields []string) error {
	if err := c.kl.Extract(fields, &c.rk); err != nil {
		return &StructuralError{FileType: c.ft, File: c.name, Line: line, Err: err}
	}

	if c.rk.HasPK {
		if dup := c.in.PKs.Add(c.rk.PK); dup && c.kl.CheckUniqueness() {
			if err := c.report(report.Error{
				Kind:       catalog.Uniqueness,
				Line:       line,
				FieldNames: c.pkErr,
				Value:      c.rk.PK.Values(),
			}); err != nil {
				return err
			}
		}
	}

	for _, ref := range c.rk.Refs() {
		r := ref.Relation
		if !c.in.Refs[r.Parent].Contains(ref.Key) {
			names := c.parent[r]
			if err := c.report(report.Error{
				Kind:       catalog.ErrorKindFor(r.Role),
				Line:       line,
				FieldNames: names.fields,
				Value:      ref.Key.Values(),
				Params:     report.Params{OtherType: r.Parent, OtherFields: names.pk},
			}); err != nil {
				return err
			}
		}
		if r.Surjective {
			c.in.Encountered[r.Parent].Add(ref.Key)
		}
	}

	if line%ProgressEvery == 0 {
		log.Printf("processor: progress type=%s file=%s lines=%d", c.ft, c.name, line)
	}
	return nil
}

func (c *fileCheck) report(e report.Error) error {
	e.FileType = c.ft
	e.FileName = c.name
	c.st.Errors[e.Kind]++
	if err := c.p.Reporter.Report(e); err != nil {
		return fmt.Errorf("%w: %s %s line %d: %w", ErrReporter, e.Kind, c.name, e.Line, err)
	}
	return nil
}
