// Package lssdb implements the codec for the Last-Synchronous-State
// Database (LSSDB): the two-file, zlib-compressed record of what the two
// sides of a base folder pair looked like the last time they were
// declared in sync. Grounded on
// original_source/FreeFileSync/Source/lib/db_file.cpp and
// base/db_file.cpp for the exact wire layout; spec.md §4.8/§6 describes
// the shape this package implements.
package lssdb

import "github.com/foldersync/foldersync/internal/compare"

// Descriptor is the per-side snapshot of a file or symlink recorded in
// the LSSDB at the time it was last in sync: modification time and
// fingerprint (spec.md §3 "LSSDB").
type Descriptor struct {
	ModTime     int64
	Fingerprint uint64
}

// FileEntry is one file record in a Folder: left and right descriptors,
// the compare variant in effect when it was last in sync, and the file
// size, which must be identical on both sides at sync time (spec.md §3).
type FileEntry struct {
	Variant compare.Variant
	Size    uint64
	Left    Descriptor
	Right   Descriptor
}

// SymlinkEntry is one symlink record in a Folder.
type SymlinkEntry struct {
	Left  Descriptor
	Right Descriptor
}

// FolderStatus records whether a recorded sub-folder existed on one or
// both sides at the time of the last sync (spec.md §4.8 "Recursion": each
// sub-folder record carries "name, status, recurse").
type FolderStatus uint8

const (
	// StatusBothSides means the folder existed on both sides.
	StatusBothSides FolderStatus = iota
	// StatusLeftOnly means the folder existed only on the left.
	StatusLeftOnly
	// StatusRightOnly means the folder existed only on the right.
	StatusRightOnly
)

// Folder is a recursive structure describing the last fully-synchronized
// state of one directory level: item-name (compared ignoring Unicode
// normal form, via internal/pathutil.NormalizedKey) mapped to a file,
// symlink, or sub-folder entry.
type Folder struct {
	Files      map[string]FileEntry
	Symlinks   map[string]SymlinkEntry
	SubFolders map[string]*SubFolder
}

// SubFolder pairs a FolderStatus with the recursively nested Folder
// describing its contents.
type SubFolder struct {
	Status FolderStatus
	Folder
}

// NewFolder returns an empty, ready-to-use Folder.
func NewFolder() Folder {
	return Folder{
		Files:      make(map[string]FileEntry),
		Symlinks:   make(map[string]SymlinkEntry),
		SubFolders: make(map[string]*SubFolder),
	}
}
