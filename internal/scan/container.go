// Package scan implements the Scanner (spec.md §4.2): a parallel,
// per-device traversal that produces a raw per-side FolderContainer tree,
// plus the Merge step that pairs two such trees (together with the
// Categorizer, internal/compare) into the comparison tree.Tree the rest
// of the engine consumes. Grounded on mutagen's
// pkg/synchronization/core/scan.go (worker shape, symlink/cycle handling,
// behavior-cache pattern), narrowed from mutagen's single-tree scan to
// this spec's dual-descriptor scan.
package scan

import "github.com/foldersync/foldersync/internal/afs"

// ItemRecord is one file or symlink entry inside a Container.
type ItemRecord struct {
	Attrs         afs.FileAttributes
	SymlinkTarget string
}

// Container is the raw per-side record of one directory level, keyed by
// item name exactly as the backend reported it (spec.md §4.2 "a tree of
// raw FolderContainer records").
type Container struct {
	Files      map[string]ItemRecord
	Symlinks   map[string]ItemRecord
	SubFolders map[string]*Container
}

// NewContainer returns an empty, ready-to-use Container.
func NewContainer() *Container {
	return &Container{
		Files:      make(map[string]ItemRecord),
		Symlinks:   make(map[string]ItemRecord),
		SubFolders: make(map[string]*Container),
	}
}

// FailedRead records one item whose enumeration failed during a scan
// (spec.md §4.2 "Error handling").
type FailedRead struct {
	// Path is the slash-separated path (relative to the scan root) of
	// the item or folder whose read failed.
	Path string
	Err  error
}
