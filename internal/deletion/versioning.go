package deletion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/foldersync/foldersync/internal/afs"
)

// NamingStyle selects how a versioned item's new name is derived from its
// original relative path (spec.md §4.7 "versioning").
type NamingStyle uint8

const (
	// Replace keeps the relative path unchanged under VersioningRoot,
	// so a later delete of the same path simply overwrites the
	// previous version.
	Replace NamingStyle = iota
	// TimestampFolder nests the whole versioned tree one level deeper,
	// under a folder named with the timestamp of the sync run.
	TimestampFolder
	// TimestampFile appends the timestamp to the item's own file name,
	// just before its extension.
	TimestampFile
)

// timestampLayout is FreeFileSync's own versioning timestamp format.
const timestampLayout = "2006-01-02 150405"

// Versioner moves deleted items into a parallel folder structure instead
// of removing them, preserving relative structure beneath VersioningRoot
// (spec.md §4.7 "versioning").
type Versioner struct {
	VersioningRoot afs.Path
	Style          NamingStyle
	// Now returns the timestamp stamped onto versioned names. Defaults
	// to time.Now when nil, overridable in tests for determinism.
	Now func() time.Time
}

func (v *Versioner) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// destination computes the versioned path for a deleted item's
// slash-separated relative path, per the configured NamingStyle.
func (v *Versioner) destination(relativePath string) afs.Path {
	segments := strings.Split(relativePath, "/")
	stamp := v.now().Format(timestampLayout)

	switch v.Style {
	case TimestampFolder:
		all := make([]string, 0, len(segments)+1)
		all = append(all, stamp)
		all = append(all, segments...)
		return afs.Path{Device: v.VersioningRoot.Device, Segments: append(append([]string{}, v.VersioningRoot.Segments...), all...)}
	case TimestampFile:
		last := len(segments) - 1
		base := segments[last]
		if dot := strings.LastIndex(base, "."); dot > 0 {
			segments[last] = base[:dot] + " " + stamp + base[dot:]
		} else {
			segments[last] = base + " " + stamp
		}
		return afs.Path{Device: v.VersioningRoot.Device, Segments: append(append([]string{}, v.VersioningRoot.Segments...), segments...)}
	default: // Replace
		return afs.Path{Device: v.VersioningRoot.Device, Segments: append(append([]string{}, v.VersioningRoot.Segments...), segments...)}
	}
}

func (v *Versioner) Delete(ctx context.Context, backend afs.Backend, path afs.Path, itemType afs.ItemType, relativePath string) error {
	dest := v.destination(relativePath)
	if itemType == afs.ItemTypeFolder {
		return v.deleteFolder(ctx, backend, path, relativePath)
	}
	return v.deleteItem(ctx, backend, path, dest, itemType)
}

// deleteFolder recreates path's children one level at a time under
// their own versioned destinations, then removes the now-empty source
// folder, since the versioning root's own layout does not mirror empty
// directories.
func (v *Versioner) deleteFolder(ctx context.Context, backend afs.Backend, path afs.Path, relativePath string) error {
	var children []struct {
		name     string
		itemType afs.ItemType
	}
	err := backend.TraverseFolder(ctx, path, func(name string, itemType afs.ItemType, _ afs.FileAttributes) error {
		children = append(children, struct {
			name     string
			itemType afs.ItemType
		}{name, itemType})
		return nil
	})
	if err != nil {
		return err
	}
	for _, c := range children {
		childRelative := c.name
		if relativePath != "" {
			childRelative = relativePath + "/" + c.name
		}
		if err := v.Delete(ctx, backend, path.Join(c.name), c.itemType, childRelative); err != nil {
			return err
		}
	}
	return backend.RemoveFolderRecursion(ctx, path, func(afs.Path, afs.ItemType) {})
}

func (v *Versioner) deleteItem(ctx context.Context, backend afs.Backend, source, dest afs.Path, itemType afs.ItemType) error {
	if err := ensureFolder(ctx, backend, dest.Parent()); err != nil {
		return err
	}

	if itemType == afs.ItemTypeSymlink {
		if err := backend.CopySymlink(ctx, source, dest); err != nil {
			return err
		}
		return backend.RemoveFilePlain(ctx, source)
	}

	err := backend.RenameItem(ctx, source, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, afs.ErrCrossDevice) && !errors.Is(err, afs.ErrRenameUnsupported) {
		return err
	}

	_, attrs, err := backend.GetItemType(ctx, source)
	if err != nil {
		return err
	}
	if _, err := backend.CopyFileTransactional(ctx, source, attrs, dest, afs.CopyOptions{
		Transactional:   true,
		CopyPermissions: true,
	}); err != nil {
		return err
	}
	return backend.RemoveFilePlain(ctx, source)
}

func (v *Versioner) Finalize(context.Context) error { return nil }
