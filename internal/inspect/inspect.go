// Package inspect inventories a submission directory against a dictionary
// before validation: which file types and data categories are present, and
// whether each file's header carries the declared columns.
//
// It reads headers only, unless row counting is requested.
package inspect

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"keyvalidator/internal/catalog"
	"keyvalidator/internal/dictionary"
	"keyvalidator/internal/parser/tsv"
)

// Lister finds the physical files of a file type.
type Lister interface {
	List(ctx context.Context, ft catalog.FileType) ([]string, error)
}

// FileReport describes one physical file.
type FileReport struct {
	Name string `json:"name"`
	// Missing are declared columns absent from the header.
	Missing []string `json:"missing,omitempty"`
	// Extra are header columns the dictionary does not declare.
	Extra []string `json:"extra,omitempty"`
	// Rows is the data row count; -1 when not counted or unreadable.
	Rows  int64  `json:"rows"`
	Error string `json:"error,omitempty"`
}

// OK reports whether the file can be key-checked.
func (f FileReport) OK() bool { return f.Error == "" && len(f.Missing) == 0 }

// TypeReport groups the files of one type.
type TypeReport struct {
	FileType catalog.FileType `json:"file_type"`
	DataType catalog.DataType `json:"data_type,omitempty"`
	Files    []FileReport     `json:"files"`
}

// Report is the inventory of a submission.
type Report struct {
	// Present are the experimental categories whose presence indicator has
	// files.
	Present []catalog.DataType `json:"present"`
	Types   []TypeReport       `json:"types"`
}

// Problems counts files that would stop a validation run.
func (r Report) Problems() int {
	n := 0
	for _, t := range r.Types {
		for _, f := range t.Files {
			if !f.OK() {
				n++
			}
		}
	}
	return n
}

// Options tune Inspect.
type Options struct {
	// CountRows streams every file to count its rows.
	CountRows bool
}

// Inspect lists every catalog type in dictionary order and checks each file's
// header against the declared columns. Per-file read problems are recorded
// in the report; only listing failures are returned as errors.
func Inspect(ctx context.Context, dict dictionary.Dictionary, files Lister, src tsv.Source, opt Options) (Report, error) {
	var rep Report

	types := append([]catalog.FileType(nil), dict.ClinicalFileTypes()...)
	for _, dt := range dict.ExperimentalDataTypes() {
		ind, err := dict.PresenceIndicator(dt)
		if err != nil {
			return rep, err
		}
		paths, err := files.List(ctx, ind)
		if err != nil {
			return rep, fmt.Errorf("inspect %s: %w", dt, err)
		}
		if len(paths) > 0 {
			rep.Present = append(rep.Present, dt)
		}
		types = append(types, dict.ExperimentalFileTypes(dt)...)
	}

	for _, ft := range types {
		paths, err := files.List(ctx, ft)
		if err != nil {
			return rep, fmt.Errorf("inspect %s: %w", ft, err)
		}
		if len(paths) == 0 {
			continue
		}
		tr := TypeReport{FileType: ft, DataType: ft.DataType()}
		for _, p := range paths {
			tr.Files = append(tr.Files, inspectFile(ctx, src, dict.FieldNames(ft), p, opt))
		}
		rep.Types = append(rep.Types, tr)
	}
	return rep, nil
}

func inspectFile(ctx context.Context, src tsv.Source, declared []string, path string, opt Options) FileReport {
	fr := FileReport{Name: filepath.Base(path), Rows: -1}
	header, err := src.Header(ctx, path)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	if header == nil {
		// Empty file: nothing to check, nothing to count.
		fr.Rows = 0
		return fr
	}
	fr.Missing, fr.Extra = diff(declared, header)
	if !opt.CountRows || len(fr.Missing) > 0 {
		return fr
	}
	n, err := src.Rows(ctx, path, declared, func(int64, []string) error { return nil })
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	fr.Rows = n
	return fr
}

// diff returns declared names absent from header and header names not
// declared, each sorted.
func diff(declared, header []string) (missing, extra []string) {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	want := make(map[string]bool, len(declared))
	for _, d := range declared {
		want[d] = true
		if !have[d] {
			missing = append(missing, d)
		}
	}
	for _, h := range header {
		if !want[h] && h != "" {
			extra = append(extra, h)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}
