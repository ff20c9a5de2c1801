package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// JSONWriter writes one JSON object per error, one per line.
type JSONWriter struct {
	mu     sync.Mutex
	bw     *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	n      int64
}

// NewJSONWriter writes to w. Close flushes and, if w is an io.Closer, closes it.
func NewJSONWriter(w io.Writer) *JSONWriter {
	bw := bufio.NewWriterSize(w, 64<<10)
	j := &JSONWriter{bw: bw, enc: json.NewEncoder(bw)}
	if c, ok := w.(io.Closer); ok {
		j.closer = c
	}
	return j
}

// CreateJSONFile creates (truncating) the report file at path, creating
// parent directories as needed. A directory path gets DefaultFileName.
func CreateJSONFile(path string) (*JSONWriter, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, DefaultFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("report: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: create %s: %w", path, err)
	}
	return NewJSONWriter(f), nil
}

func (j *JSONWriter) Report(e Error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if e.FieldNames == nil {
		e.FieldNames = []string{}
	}
	if e.Value == nil {
		e.Value = []string{}
	}
	if err := j.enc.Encode(e); err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	j.n++
	return nil
}

// Written is the number of errors encoded so far.
func (j *JSONWriter) Written() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.n
}

// Close flushes buffered output and closes the underlying writer.
func (j *JSONWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.bw.Flush(); err != nil {
		return fmt.Errorf("report: flush: %w", err)
	}
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
