// Package tsv streams tab-delimited submission files as rows of string fields
// aligned to a file type's declared columns.
package tsv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"keyvalidator/internal/config"
	"keyvalidator/internal/datasource/file"
)

// maxLineBytes bounds a single physical line.
const maxLineBytes = 16 << 20

var (
	// ErrMissingColumn means the header lacks a declared column.
	ErrMissingColumn = errors.New("tsv: missing declared column")
	// ErrRowShape means a row's field count differs from the header's.
	ErrRowShape = errors.New("tsv: wrong field count")
)

// RowFunc receives one data row. line is the 1-based physical line number.
// fields is aligned to the declared columns and reused between calls.
type RowFunc func(line int64, fields []string) error

// LineError ties a read error to a line.
type LineError struct {
	Line int64
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *LineError) Unwrap() error { return e.Err }

// stripBOM drops a leading byte order mark. Input without one passes through
// byte for byte, so invalid UTF-8 in key values is never rewritten.
func stripBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}

// StreamRows reads r and calls fn for every non-blank data row.
//
// Header handling:
//   - has_header (default true): the first line names the columns. Names are
//     NFC-normalized, trimmed and lower-cased, then matched to columns; a
//     declared column absent from the header is ErrMissingColumn. Extra
//     header columns are ignored.
//   - has_header=false: columns are positional.
//
// Other options: trim_space (default false) trims every value; comma
// (default tab) sets the delimiter. A UTF-8 or UTF-16 byte order mark is
// honored and stripped.
//
// It returns the number of data rows passed to fn.
func StreamRows(ctx context.Context, r io.Reader, columns []string, opt config.Options, fn RowFunc) (int64, error) {
	hasHeader := opt.Bool("has_header", true)
	trim := opt.Bool("trim_space", false)
	sep := string(opt.Rune("comma", '\t'))

	sc := bufio.NewScanner(stripBOM(r))
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	var (
		line  int64
		rows  int64
		raw   []string
		colIx = make([]int, len(columns)) // colIx[target] = source index
		width = len(columns)
		out   = make([]string, len(columns))
	)

	if hasHeader {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, &LineError{Line: 1, Err: err}
			}
			// Empty file: no header, no rows.
			return 0, nil
		}
		line++
		raw = splitInto(raw, strings.TrimSuffix(sc.Text(), "\r"), sep)
		srcIx := make(map[string]int, len(raw))
		for i, h := range raw {
			h = NormalizeHeader(h)
			if _, dup := srcIx[h]; !dup {
				srcIx[h] = i
			}
		}
		var missing []string
		for t, c := range columns {
			si, ok := srcIx[c]
			if !ok {
				missing = append(missing, c)
				continue
			}
			colIx[t] = si
		}
		if len(missing) > 0 {
			return 0, &LineError{Line: 1, Err: fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))}
		}
		width = len(raw)
	} else {
		for i := range colIx {
			colIx[i] = i
		}
	}

	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		text := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		raw = splitInto(raw, text, sep)
		if len(raw) != width {
			return rows, &LineError{Line: line, Err: fmt.Errorf("%w: got %d, want %d", ErrRowShape, len(raw), width)}
		}
		for t, si := range colIx {
			v := raw[si]
			if trim {
				v = strings.TrimSpace(v)
			}
			out[t] = v
		}
		rows++
		if err := fn(line, out); err != nil {
			return rows, err
		}
	}
	if err := sc.Err(); err != nil {
		return rows, &LineError{Line: line + 1, Err: err}
	}
	return rows, nil
}

// NormalizeHeader is the column-name form used for matching: NFC, trimmed,
// lower-case.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(h)))
}

// splitInto splits s on sep, reusing dst's backing array. Values still
// reference s.
func splitInto(dst []string, s, sep string) []string {
	dst = dst[:0]
	for {
		i := strings.Index(s, sep)
		if i < 0 {
			return append(dst, s)
		}
		dst = append(dst, s[:i])
		s = s[i+len(sep):]
	}
}

// Source opens files from local disk and streams them with fixed options.
type Source struct {
	Options config.Options
}

// Rows opens path (decompressing .gz/.bz2) and streams its rows.
func (s Source) Rows(ctx context.Context, path string, columns []string, fn RowFunc) (int64, error) {
	rc, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return StreamRows(ctx, rc, columns, s.Options, fn)
}

// Header returns the normalized column names of path's first line. A file
// without lines has no header.
func (s Source) Header(ctx context.Context, path string) ([]string, error) {
	rc, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	sc := bufio.NewScanner(stripBOM(rc))
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, &LineError{Line: 1, Err: err}
		}
		return nil, nil
	}
	raw := splitInto(nil, strings.TrimSuffix(sc.Text(), "\r"), string(s.Options.Rune("comma", '\t')))
	for i, h := range raw {
		raw[i] = NormalizeHeader(h)
	}
	return raw, nil
}
