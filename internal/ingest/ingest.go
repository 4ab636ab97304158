// Package ingest enumerates CSV files, materializes their columns, and builds
// the per-column MinHash sketches the index operates on.
package ingest

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Sumatoshi-tech/simlsh/pkg/simerr"
)

// ErrNoMatches is returned when a glob pattern matches no files.
var ErrNoMatches = simerr.Invalid(errors.New("ingest: pattern matched no files"))

// Enumerate expands a doublestar glob pattern rooted at the current
// directory into a sorted list of matching file paths.
func Enumerate(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("ingest: glob %q: %w", pattern, err)
	}

	if len(matches) == 0 {
		return nil, ErrNoMatches
	}

	return matches, nil
}
