// Package report defines the structured key-error record and the sinks that
// receive them. Sinks are write-only: the validator never reads back what it
// reported.
package report

import (
	"sort"
	"strings"
	"sync"

	"keyvalidator/internal/catalog"
)

// SurjectionLine is the line number recorded for SURJECTION errors, which are
// not tied to any input line.
const SurjectionLine int64 = -1

// DefaultFileName is the name of the JSON-lines error report in an output
// directory.
const DefaultFileName = "all.keys--errors.json"

// Error is one key violation.
type Error struct {
	Kind     catalog.ErrorKind `json:"type"`
	FileType catalog.FileType  `json:"fileType"`
	// FileName is the base name of the offending file; empty for SURJECTION.
	FileName string `json:"fileName"`
	// Line is the 1-based line of the offending row, or SurjectionLine.
	Line       int64    `json:"lineNumber"`
	FieldNames []string `json:"fieldNames"`
	Value      []string `json:"value"`
	Params     Params   `json:"params"`
}

// Params carry the other side of the violated constraint. For relation
// errors they name the referenced type and its primary key fields; for
// SURJECTION the referencing type and its foreign key fields.
type Params struct {
	OtherType   catalog.FileType `json:"otherType,omitempty"`
	OtherFields []string         `json:"otherFields,omitempty"`
}

// Reporter receives key errors. Implementations must be safe for concurrent
// use when files are processed in parallel.
type Reporter interface {
	Report(e Error) error
}

// Func adapts a function to Reporter.
type Func func(e Error) error

func (f Func) Report(e Error) error { return f(e) }

// Multi fans an error out to every reporter, stopping at the first failure.
func Multi(rs ...Reporter) Reporter {
	return Func(func(e Error) error {
		for _, r := range rs {
			if err := r.Report(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Collector keeps every reported error in memory.
type Collector struct {
	mu   sync.Mutex
	errs []Error
}

func (c *Collector) Report(e Error) error {
	c.mu.Lock()
	c.errs = append(c.errs, e)
	c.mu.Unlock()
	return nil
}

// Errors returns a copy of the errors in report order.
func (c *Collector) Errors() []Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Error(nil), c.errs...)
}

// Len is the number of errors collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// Count returns how many errors of kind were collected.
func (c *Collector) Count(kind catalog.ErrorKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.errs {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Sorted returns the errors in a canonical order independent of reporting
// order: by file type declaration, file, line, kind and value.
func (c *Collector) Sorted() []Error {
	out := c.Errors()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if x, y := a.FileType.Ordinal(), b.FileType.Ordinal(); x != y {
			return x < y
		}
		if a.FileName != b.FileName {
			return a.FileName < b.FileName
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return strings.Join(a.Value, "\x1f") < strings.Join(b.Value, "\x1f")
	})
	return out
}
