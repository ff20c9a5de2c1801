// Package file implements local filesystem data sources: opening (and
// transparently decompressing) submission files and listing the files that
// belong to a file type.
package file

import (
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"keyvalidator/internal/datasource"
)

// Local is a filesystem data source bound to one path.
type Local struct{ path string }

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a Local data source for path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the file for reading. Files ending in .gz or .bz2 are
// decompressed on the fly; Close releases both the decompressor and the file.
// A context that is already done short-circuits before touching the disk.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)

	switch {
	case strings.HasSuffix(l.path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip %s: %w", l.path, err)
		}
		return &readCloser{Reader: zr, close: func() error {
			zerr := zr.Close()
			if ferr := f.Close(); ferr != nil {
				return ferr
			}
			return zerr
		}}, nil
	case strings.HasSuffix(l.path, ".bz2"):
		return &readCloser{Reader: bzip2.NewReader(f), close: f.Close}, nil
	default:
		return f, nil
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error { return r.close() }
