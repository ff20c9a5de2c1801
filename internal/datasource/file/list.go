package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"keyvalidator/internal/catalog"
)

// Lister finds the physical files of a file type. System types are looked up
// in SystemDir, everything else in SubmissionDir.
type Lister struct {
	SubmissionDir string
	SystemDir     string
}

// Pattern returns the file name pattern for ft:
// <type>[.<part>].txt[.gz|.bz2], e.g. "ssm_p.txt", "ssm_p.chr1.txt.gz".
func Pattern(ft catalog.FileType) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(string(ft)) + `(\.[A-Za-z0-9_-]+)?\.txt(\.gz|\.bz2)?$`)
}

// List returns the sorted paths of ft's files. A directory without matching
// files yields (nil, nil); an unreadable directory is an error.
func (l Lister) List(ctx context.Context, ft catalog.FileType) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := l.SubmissionDir
	if ft.IsSystem() {
		dir = l.SystemDir
	}
	if dir == "" {
		return nil, fmt.Errorf("list %s: no directory configured", ft)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", ft, err)
	}
	re := Pattern(ft)
	var out []string
	for _, e := range entries {
		if e.IsDir() || !re.MatchString(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
