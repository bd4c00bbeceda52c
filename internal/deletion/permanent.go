package deletion

import (
	"context"

	"github.com/foldersync/foldersync/internal/afs"
)

// Permanent routes deletions straight through the backend's removal
// primitives (spec.md §4.7 "permanent"). A folder is removed with one
// RemoveFolderRecursion call whose per-item callback does nothing, so no
// per-child delta is reported.
type Permanent struct{}

func (Permanent) Delete(ctx context.Context, backend afs.Backend, path afs.Path, itemType afs.ItemType, _ string) error {
	if itemType == afs.ItemTypeFolder {
		return backend.RemoveFolderRecursion(ctx, path, func(afs.Path, afs.ItemType) {})
	}
	return backend.RemoveFilePlain(ctx, path)
}

func (Permanent) Finalize(context.Context) error { return nil }
