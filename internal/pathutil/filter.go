package pathutil

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter is the hard (name/path) include/exclude filter applied during
// traversal, per spec.md §4.2 and the filter syntax in spec.md §6. Lines
// beginning with '!' (after trimming) are exclude patterns; all others
// are include patterns. An item is active if it matches at least one
// include pattern (or there are none) and no exclude pattern.
type Filter struct {
	includes []string
	excludes []string
}

// NewFilter compiles a Filter from a line-list of glob-like patterns.
// Blank lines and lines starting with '#' are ignored as comments, in
// keeping with the teacher's ignore-file conventions
// (pkg/synchronization/core/ignore/ignore_syntax.go).
func NewFilter(lines []string) *Filter {
	f := &Filter{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "!") {
			f.excludes = append(f.excludes, normalizePattern(line[1:]))
		} else {
			f.includes = append(f.includes, normalizePattern(line))
		}
	}
	return f
}

// normalizePattern anchors a pattern and expands the implicit "/**/"
// recursion spec.md §6 describes for unanchored directory wildcards: a
// pattern with no wildcard segments at all is treated as a prefix match
// over the whole subtree, matching FreeFileSync's own filter semantics.
func normalizePattern(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "/")
	if !strings.Contains(pattern, "*") && !strings.Contains(pattern, "?") {
		return pattern + "/**"
	}
	return pattern
}

// Match reports whether relativePath (slash-separated, relative to the
// base folder) is active under this filter.
func (f *Filter) Match(relativePath string) bool {
	if f == nil {
		return true
	}
	included := len(f.includes) == 0
	for _, pattern := range f.includes {
		if matchesPattern(pattern, relativePath) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range f.excludes {
		if matchesPattern(pattern, relativePath) {
			return false
		}
	}
	return true
}

func matchesPattern(pattern, path string) bool {
	if ok, _ := doublestar.Match(pattern, path); ok {
		return true
	}
	// A pattern ending in "/**" also matches the folder it names, so that
	// excluding "build/**" excludes the "build" folder entry itself, not
	// just its contents.
	if ok, _ := doublestar.Match(strings.TrimSuffix(pattern, "/**"), path); ok {
		return true
	}
	return false
}

// SoftFilter is the size/time filter applied after traversal by the
// Categorizer pass (spec.md §4.2): soft filters may match on one side
// only and would otherwise create spurious left/right asymmetries if
// applied during traversal.
type SoftFilter struct {
	// MinSize and MaxSize bound item size in bytes; zero means unbounded.
	MinSize, MaxSize uint64
	// NewerThan and OlderThan bound modification time as Unix seconds;
	// zero means unbounded.
	NewerThan, OlderThan int64
}

// Allows reports whether an item with the given size and modification
// time passes the soft filter.
func (s *SoftFilter) Allows(size uint64, modTime int64) bool {
	if s == nil {
		return true
	}
	if s.MinSize != 0 && size < s.MinSize {
		return false
	}
	if s.MaxSize != 0 && size > s.MaxSize {
		return false
	}
	if s.NewerThan != 0 && modTime < s.NewerThan {
		return false
	}
	if s.OlderThan != 0 && modTime > s.OlderThan {
		return false
	}
	return true
}
