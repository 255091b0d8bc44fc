package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
)

var ErrNoMatch = errors.New("pattern matched no files")

// ExpandGlobs resolves artifact patterns (with ** support) relative to
// baseDir into a sorted list of unique files. Each pattern must match at
// least one file; a missing export usually means the job producing it failed.
func ExpandGlobs(baseDir string, patterns []string) ([]string, error) {
	files := mapset.NewThreadUnsafeSet[string]()

	for _, pattern := range patterns {
		if !filepath.IsAbs(pattern) && baseDir != "" {
			pattern = filepath.Join(baseDir, pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
		}
		files.Append(matches...)
	}

	out := files.ToSlice()
	slices.Sort(out)
	return out, nil
}
