// Package deletion implements the Deletion Handler (spec.md §4.7): one
// interface, three interchangeable implementations chosen per base
// folder, governing how an item scheduled for removal is actually
// disposed of. Grounded on
// original_source/FreeFileSync/Source/lib/versioning.cpp for the
// versioning folder layout and timestamp format, and
// original_source/FreeFileSync/Source/base/synchronization.cpp for the
// deletion-policy dispatch the Sync Executor performs against this
// interface.
package deletion

import (
	"context"

	"github.com/foldersync/foldersync/internal/afs"
)

// tempFileExtension matches the reserved suffix the Direction Engine
// treats specially; items carrying it are always deleted permanently
// regardless of the configured policy (spec.md §4.7, closing paragraph).
const tempFileExtension = ".ffs_tmp"

// Handler disposes of one item per Delete call. Implementations may
// defer work until Finalize (the recycler batches its sweep there); the
// others treat Finalize as a no-op.
type Handler interface {
	// Delete disposes of path, of the given item type. relativePath is
	// slash-separated and relative to the base folder side; only the
	// versioning implementation uses it, to preserve structure under the
	// versioning root.
	Delete(ctx context.Context, backend afs.Backend, path afs.Path, itemType afs.ItemType, relativePath string) error
	// Finalize performs any deferred batch work. Safe to call once, after
	// all Delete calls for a sync run have completed.
	Finalize(ctx context.Context) error
}

// HasTempExtension reports whether name carries the reserved temp-file
// extension, in which case the Sync Executor must route it through
// Permanent regardless of the base folder's configured policy.
func HasTempExtension(name string) bool {
	n, e := len(name), len(tempFileExtension)
	return n >= e && name[n-e:] == tempFileExtension
}

// ensureFolder creates path and every missing ancestor, recursing upward
// on demand exactly as the Sync Executor does for ordinary creations
// (spec.md §4.6 "Parent-folder creation"). The device root (zero
// segments) always exists and needs no call.
func ensureFolder(ctx context.Context, backend afs.Backend, path afs.Path) error {
	if len(path.Segments) == 0 {
		return nil
	}
	if err := ensureFolder(ctx, backend, path.Parent()); err != nil {
		return err
	}
	return backend.CreateFolderPlain(ctx, path)
}
