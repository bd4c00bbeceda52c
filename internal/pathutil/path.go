// Package pathutil provides pure path algebra and include/exclude/soft
// filtering, grounded on mutagen's pkg/synchronization/core/path.go
// (pathJoin, nameUnion, pathLess) and its ignore-pattern handling.
package pathutil

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Join combines a parent relative path and a child name using '/' as the
// separator, matching spec.md §6's requirement that filters match against
// slash-normalized relative paths.
func Join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// Split returns a path's parent and final component. Split("") returns
// ("", "").
func Split(path string) (parent, name string) {
	if path == "" {
		return "", ""
	}
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx], path[idx+1:]
	}
	return "", path
}

// Less orders two relative paths depth-first, matching mutagen's
// pathLess (shorter paths, and common prefixes, sort before their
// children) so diagnostic listings are stable and depth-consistent.
func Less(a, b string) bool {
	aParts := strings.Split(a, "/")
	bParts := strings.Split(b, "/")
	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		if aParts[i] != bParts[i] {
			return aParts[i] < bParts[i]
		}
	}
	return len(aParts) < len(bParts)
}

// SortPaths sorts a slice of relative paths using Less.
func SortPaths(paths []string) {
	sort.Slice(paths, func(i, j int) bool { return Less(paths[i], paths[j]) })
}

// NameUnion returns the set of names present in any of the given maps,
// mirroring mutagen's nameUnion helper used to drive recursive tree
// comparisons keyed by child name.
func NameUnion[V any](maps ...map[string]V) map[string]struct{} {
	union := make(map[string]struct{})
	for _, m := range maps {
		for name := range m {
			union[name] = struct{}{}
		}
	}
	return union
}

// DisplayEqual compares two raw item names the way spec.md §3 requires for
// display-path comparison: case-insensitive, but never altering the raw
// stored name. Unicode normal form differences are also ignored, matching
// the LSSDB's folder-node key comparison (spec.md §3, "In-Sync Folder
// Tree").
func DisplayEqual(a, b string) bool {
	if len(a) == len(b) && a == b {
		return true
	}
	return strings.EqualFold(normalize(a), normalize(b))
}

// NormalizedKey returns the lookup key used for LSSDB folder-node name
// comparison: NFC-normalized, original case preserved (comparison applied
// separately by the caller where case-insensitivity is also required).
func NormalizedKey(name string) string {
	return normalize(name)
}

func normalize(name string) string {
	if norm.NFC.IsNormalString(name) {
		return name
	}
	return norm.NFC.String(name)
}
