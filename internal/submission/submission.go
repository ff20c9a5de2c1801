// Package submission drives key validation over a whole submission: clinical
// types first, then every experimental category that was submitted, each
// type after all of its parents.
package submission

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/dictionary"
	"keyvalidator/internal/keys"
	"keyvalidator/internal/metrics"
	"keyvalidator/internal/processor"
	"keyvalidator/internal/report"
	"keyvalidator/internal/surjectivity"
)

var banner = strings.Repeat("=", 75)

// Lister finds the physical files of a file type. file.Lister satisfies it.
type Lister interface {
	List(ctx context.Context, ft catalog.FileType) ([]string, error)
}

// Options tune a run.
type Options struct {
	// FileWorkers bounds how many files of one type are scanned at once.
	FileWorkers int
	// CategoryWorkers bounds how many experimental categories run at once.
	CategoryWorkers int
	// Job labels logs and metrics.
	Job string
}

// TypeResult is the outcome of one file type.
type TypeResult struct {
	Files   int
	Stats   processor.Stats
	Orphans int
}

// Result is the outcome of a submission run.
type Result struct {
	// Categories are the experimental data types found in the submission.
	Categories []catalog.DataType
	Types      map[catalog.FileType]TypeResult
	// Failed is set when the run stopped on a fatal error.
	Failed bool
}

// Errors is the number of key errors reported across all types, SURJECTION
// included.
func (r Result) Errors() int64 {
	var n int64
	for _, t := range r.Types {
		n += t.Stats.Total() + int64(t.Orphans)
	}
	return n
}

// Processor validates one submission. It is single-use.
type Processor struct {
	dict  dictionary.Dictionary
	files Lister
	fp    *processor.FileProcessor
	surj  surjectivity.Validator
	opt   Options

	mu      sync.Mutex
	pks     map[catalog.FileType]*keys.PrimaryKeys // finalized, write-once
	planned map[catalog.FileType]bool
	pending map[catalog.FileType]int // planned children not yet done
	results map[catalog.FileType]TypeResult
}

// New wires a Processor. rows streams file contents; reporter must be safe
// for concurrent use when either worker count exceeds one.
func New(dict dictionary.Dictionary, files Lister, rows processor.RowSource, reporter report.Reporter, opt Options) *Processor {
	if opt.FileWorkers < 1 {
		opt.FileWorkers = 1
	}
	if opt.CategoryWorkers < 1 {
		opt.CategoryWorkers = 1
	}
	return &Processor{
		dict:    dict,
		files:   files,
		fp:      &processor.FileProcessor{Dictionary: dict, Rows: rows, Reporter: reporter, Job: opt.Job},
		surj:    surjectivity.Validator{Dictionary: dict, Reporter: reporter},
		opt:     opt,
		pks:     map[catalog.FileType]*keys.PrimaryKeys{},
		planned: map[catalog.FileType]bool{},
		pending: map[catalog.FileType]int{},
		results: map[catalog.FileType]TypeResult{},
	}
}

// ProcessSubmission validates clinical core, clinical supplemental and then
// each present experimental category. The first fatal error stops the run.
func (p *Processor) ProcessSubmission(ctx context.Context) (Result, error) {
	start := time.Now()
	res, err := p.run(ctx)
	metrics.RecordStep(p.opt.Job, "submission", err, time.Since(start))
	if err != nil {
		res.Failed = true
		log.Printf("submission: failed job=%s elapsed=%s err=%v", p.opt.Job, time.Since(start).Truncate(time.Millisecond), err)
		return res, err
	}
	log.Printf("submission: done job=%s types=%d errors=%d elapsed=%s",
		p.opt.Job, len(res.Types), res.Errors(), time.Since(start).Truncate(time.Millisecond))
	return res, nil
}

func (p *Processor) run(ctx context.Context) (Result, error) {
	var res Result
	present, err := p.presentCategories(ctx)
	if err != nil {
		return p.snapshot(res), err
	}
	res.Categories = present

	clinical := p.dict.ClinicalFileTypes()
	planned := append([]catalog.FileType(nil), clinical...)
	for _, dt := range present {
		planned = append(planned, p.dict.ExperimentalFileTypes(dt)...)
	}
	p.plan(planned)

	log.Printf("submission: processing clinical data types=%d", len(clinical))
	for _, ft := range clinical {
		if err := p.ProcessFileType(ctx, ft); err != nil {
			return p.snapshot(res), err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opt.CategoryWorkers)
	for _, dt := range present {
		g.Go(func() error {
			log.Printf("submission: processing %s data", dt)
			// Order matters: meta, system, primary, secondary.
			for _, ft := range p.dict.ExperimentalFileTypes(dt) {
				if err := p.ProcessFileType(gctx, ft); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err = g.Wait()
	return p.snapshot(res), err
}

// presentCategories returns the experimental data types whose presence
// indicator has at least one file, in dictionary order.
func (p *Processor) presentCategories(ctx context.Context) ([]catalog.DataType, error) {
	var out []catalog.DataType
	for _, dt := range p.dict.ExperimentalDataTypes() {
		ind, err := p.dict.PresenceIndicator(dt)
		if err != nil {
			return nil, err
		}
		paths, err := p.files.List(ctx, ind)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			log.Printf("submission: no %s data", dt)
			continue
		}
		out = append(out, dt)
	}
	return out, nil
}

// plan counts, for every planned type, the planned types that reference it,
// so its keys can be dropped once the last of them is done.
func (p *Processor) plan(planned []catalog.FileType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ft := range planned {
		p.planned[ft] = true
		for _, parent := range p.dict.Parents(ft) {
			p.pending[parent]++
		}
	}
}

// ProcessFileType checks every file of ft against its finalized parents,
// publishes ft's primary keys, and then checks surjectivity toward each
// parent ft must cover.
func (p *Processor) ProcessFileType(ctx context.Context, ft catalog.FileType) error {
	start := time.Now()
	tr, err := p.processFileType(ctx, ft)
	metrics.RecordStep(p.opt.Job, string(ft), err, time.Since(start))

	p.mu.Lock()
	p.results[ft] = tr
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("submission: %s: %w", ft, err)
	}
	log.Printf("submission: finished type=%s files=%d rows=%d errors=%d orphans=%d elapsed=%s",
		ft, tr.Files, tr.Stats.Rows, tr.Stats.Total(), tr.Orphans, time.Since(start).Truncate(time.Millisecond))
	return nil
}

func (p *Processor) processFileType(ctx context.Context, ft catalog.FileType) (TypeResult, error) {
	tr := TypeResult{Stats: processor.Stats{Errors: map[catalog.ErrorKind]int64{}}}
	log.Print(banner)

	refs, err := p.referenced(ft)
	if err != nil {
		return tr, err
	}
	encountered := map[catalog.FileType]*keys.EncounteredForeignKeys{}
	for _, parent := range p.dict.SurjectiveReferencedTypes(ft) {
		encountered[parent] = keys.NewEncounteredForeignKeys(ft, parent)
	}
	log.Printf("submission: type=%s parents=%v collecting_fks_for=%v", ft, p.dict.Parents(ft), p.dict.SurjectiveReferencedTypes(ft))

	paths, err := p.files.List(ctx, ft)
	if err != nil {
		return tr, err
	}
	tr.Files = len(paths)
	if len(paths) == 0 {
		log.Printf("submission: skipping %s, no matching files", ft)
	}

	in := processor.Inputs{
		PKs:         keys.NewPrimaryKeys(ft),
		Refs:        refs,
		Encountered: encountered,
	}
	var statsMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opt.FileWorkers)
	for _, path := range paths {
		g.Go(func() error {
			st, err := p.fp.ProcessFile(gctx, ft, path, in)
			statsMu.Lock()
			tr.Stats.Add(st)
			statsMu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return tr, err
	}

	if err := p.finalize(ft, in.PKs); err != nil {
		return tr, err
	}

	for _, parent := range p.dict.SurjectiveReferencedTypes(ft) {
		p.mu.Lock()
		parentPKs := p.pks[parent]
		p.mu.Unlock()
		log.Printf("submission: surjectivity check child=%s parent=%s", ft, parent)
		start := time.Now()
		n, err := p.surj.Validate(ft, parentPKs, encountered[parent], parent)
		metrics.RecordStep(p.opt.Job, "surjection", err, time.Since(start))
		if err != nil {
			return tr, err
		}
		tr.Orphans += n
	}

	p.release(ft)
	return tr, nil
}

// referenced builds read-only views of ft's finalized parents.
func (p *Processor) referenced(ft catalog.FileType) (map[catalog.FileType]*keys.ReferencedPrimaryKeys, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := map[catalog.FileType]*keys.ReferencedPrimaryKeys{}
	for _, parent := range p.dict.Parents(ft) {
		pks, ok := p.pks[parent]
		if !ok || pks == nil {
			return nil, fmt.Errorf("parent %s of %s has not been processed", parent, ft)
		}
		out[parent] = keys.Reference(pks)
	}
	return out, nil
}

func (p *Processor) finalize(ft catalog.FileType, pks *keys.PrimaryKeys) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.pks[ft]; dup {
		return fmt.Errorf("primary keys of %s already finalized", ft)
	}
	p.pks[ft] = pks
	return nil
}

// release drops the key sets nobody will read again: ft's parents once their
// last planned child is done, and ft itself if no planned type references it.
// Types outside the plan keep their keys.
func (p *Processor) release(ft catalog.FileType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.planned[ft] {
		return
	}
	for _, parent := range p.dict.Parents(ft) {
		p.pending[parent]--
		if p.pending[parent] <= 0 && p.planned[parent] {
			p.drop(parent)
		}
	}
	if p.pending[ft] <= 0 {
		p.drop(ft)
	}
}

func (p *Processor) drop(ft catalog.FileType) {
	if pks, ok := p.pks[ft]; ok && pks != nil {
		log.Printf("submission: releasing keys type=%s keys=%d", ft, pks.Len())
		// Keep the entry so a late re-run still fails the write-once check.
		p.pks[ft] = nil
	}
}

// Retained lists the types whose primary keys are still held.
func (p *Processor) Retained() []catalog.FileType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []catalog.FileType
	for ft, pks := range p.pks {
		if pks != nil {
			out = append(out, ft)
		}
	}
	return out
}

func (p *Processor) snapshot(res Result) Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	res.Types = make(map[catalog.FileType]TypeResult, len(p.results))
	for ft, tr := range p.results {
		res.Types[ft] = tr
	}
	return res
}
