// Package local implements the Abstract File System interface over the
// local disk, the same way mutagen's pkg/filesystem backs its local
// synchronization endpoint.
package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/must"
)

// Backend implements afs.Backend over the local filesystem. A Backend
// value is associated with a single device, identified by the volume the
// root path resides on; callers are expected to create one Backend per
// base-folder side.
type Backend struct {
	device afs.DeviceID
}

// New constructs a local backend for the given device identifier (an
// opaque label, typically the volume or mount point hosting the base
// folder).
func New(device afs.DeviceID) *Backend {
	return &Backend{device: device}
}

// Device returns the backend's device identifier.
func (b *Backend) Device() afs.DeviceID { return b.device }

// nativePath converts an afs.Path into an OS path string. Local paths are
// rooted at the filesystem root; Segments[0] is expected to already
// contain any volume prefix the caller cares about (e.g. "/home/user" on
// POSIX or "C:\\Users" on Windows supplied as a single segment).
func nativePath(path afs.Path) string {
	return filepath.Join(path.Segments...)
}

// Connect is a no-op for the local backend: there is no session to
// establish.
func (b *Backend) Connect(ctx context.Context) error { return nil }

func translateStatError(err error) error {
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err):
		return afs.ErrNotExist
	case os.IsPermission(err):
		return afs.ErrPermission
	default:
		return err
	}
}

// GetItemType implements afs.Backend.GetItemType.
func (b *Backend) GetItemType(ctx context.Context, path afs.Path) (afs.ItemType, afs.FileAttributes, error) {
	info, err := os.Lstat(nativePath(path))
	if err != nil {
		return 0, afs.FileAttributes{}, translateStatError(err)
	}
	return classify(info), attributesOf(info), nil
}

func classify(info fs.FileInfo) afs.ItemType {
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return afs.ItemTypeSymlink
	case info.IsDir():
		return afs.ItemTypeFolder
	default:
		return afs.ItemTypeFile
	}
}

// ItemExists implements afs.Backend.ItemExists.
func (b *Backend) ItemExists(ctx context.Context, path afs.Path) (bool, error) {
	if _, err := os.Lstat(nativePath(path)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, translateStatError(err)
	}
	return true, nil
}

// ReadStream implements afs.Backend.ReadStream.
func (b *Backend) ReadStream(ctx context.Context, path afs.Path) (io.ReadCloser, error) {
	f, err := os.Open(nativePath(path))
	if err != nil {
		return nil, translateStatError(err)
	}
	return f, nil
}

// WriteStream implements afs.Backend.WriteStream.
func (b *Backend) WriteStream(ctx context.Context, path afs.Path) (io.WriteCloser, error) {
	f, err := os.OpenFile(nativePath(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, translateStatError(err)
	}
	return f, nil
}

// CreateFolderPlain implements afs.Backend.CreateFolderPlain.
func (b *Backend) CreateFolderPlain(ctx context.Context, path afs.Path) error {
	if err := os.Mkdir(nativePath(path), 0o755); err != nil {
		if os.IsExist(err) {
			if info, statErr := os.Lstat(nativePath(path)); statErr == nil && info.IsDir() {
				return nil
			}
		}
		return translateStatError(err)
	}
	return nil
}

// RenameItem implements afs.Backend.RenameItem.
func (b *Backend) RenameItem(ctx context.Context, source, target afs.Path) error {
	if source.Device != target.Device {
		return afs.ErrCrossDevice
	}
	if err := os.Rename(nativePath(source), nativePath(target)); err != nil {
		if linkErr, ok := err.(*os.LinkError); ok && isCrossDeviceErrno(linkErr.Err) {
			return afs.ErrCrossDevice
		}
		return translateStatError(err)
	}
	return nil
}

// RemoveFilePlain implements afs.Backend.RemoveFilePlain.
func (b *Backend) RemoveFilePlain(ctx context.Context, path afs.Path) error {
	if err := os.Remove(nativePath(path)); err != nil {
		return translateStatError(err)
	}
	return nil
}

// RemoveFolderRecursion implements afs.Backend.RemoveFolderRecursion,
// reporting one delta per removed child as spec.md §4.7 requires for the
// permanent deletion policy. Children are removed deepest-first so that a
// directory is only removed once it is empty.
func (b *Backend) RemoveFolderRecursion(ctx context.Context, path afs.Path, onItem func(afs.Path, afs.ItemType)) error {
	root := nativePath(path)
	var names []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		names = append(names, p)
		return nil
	})
	if err != nil {
		return translateStatError(err)
	}
	for i := len(names) - 1; i >= 0; i-- {
		rel, _ := filepath.Rel(root, names[i])
		segments := append(append([]string{}, path.Segments...), strings.Split(rel, string(filepath.Separator))...)
		itemPath := afs.Path{Device: path.Device, Segments: segments}
		info, statErr := os.Lstat(names[i])
		var itemType afs.ItemType
		if statErr == nil {
			itemType = classify(info)
		}
		if info != nil && info.IsDir() {
			if rmErr := os.Remove(names[i]); rmErr != nil {
				return translateStatError(rmErr)
			}
		} else {
			if rmErr := os.Remove(names[i]); rmErr != nil {
				return translateStatError(rmErr)
			}
		}
		if onItem != nil {
			onItem(itemPath, itemType)
		}
	}
	if err := os.Remove(root); err != nil {
		return translateStatError(err)
	}
	return nil
}

// CopySymlink implements afs.Backend.CopySymlink.
func (b *Backend) CopySymlink(ctx context.Context, source, target afs.Path) error {
	dest, err := os.Readlink(nativePath(source))
	if err != nil {
		return translateStatError(err)
	}
	if err := os.Symlink(dest, nativePath(target)); err != nil {
		return translateStatError(err)
	}
	return nil
}

// TraverseFolder implements afs.Backend.TraverseFolder.
func (b *Backend) TraverseFolder(ctx context.Context, path afs.Path, callback afs.TraverseCallback) error {
	entries, err := os.ReadDir(nativePath(path))
	if err != nil {
		return translateStatError(err)
	}
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return translateStatError(err)
		}
		if err := callback(entry.Name(), classify(info), attributesOf(info)); err != nil {
			return err
		}
	}
	return nil
}

// CopyFileTransactional implements afs.Backend.CopyFileTransactional per
// the contract in SPEC_FULL.md §4.1: write to a temp sibling, flush,
// invoke the pre-delete hook, then rename atomically onto the target.
func (b *Backend) CopyFileTransactional(ctx context.Context, source afs.Path, sourceAttrs afs.FileAttributes, target afs.Path, options afs.CopyOptions) (afs.CopyResult, error) {
	src, err := os.Open(nativePath(source))
	if err != nil {
		return afs.CopyResult{}, translateStatError(err)
	}
	defer must.Close(src, nil)

	targetNative := nativePath(target)
	writePath := targetNative
	var temp *os.File
	if options.Transactional {
		temp, err = os.CreateTemp(filepath.Dir(targetNative), ".fsync-tmp-*")
		if err != nil {
			return afs.CopyResult{}, translateStatError(err)
		}
		writePath = temp.Name()
	} else {
		temp, err = os.OpenFile(writePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return afs.CopyResult{}, translateStatError(err)
		}
	}

	var written int64
	buf := make([]byte, 256*1024)
	for {
		if err := ctx.Err(); err != nil {
			must.Close(temp, nil)
			if options.Transactional {
				must.OSRemove(writePath, nil)
			}
			return afs.CopyResult{}, afs.ErrCancelled
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := temp.Write(buf[:n]); writeErr != nil {
				must.Close(temp, nil)
				if options.Transactional {
					must.OSRemove(writePath, nil)
				}
				return afs.CopyResult{}, translateStatError(writeErr)
			}
			written += int64(n)
			if options.OnBytes != nil {
				if cbErr := options.OnBytes(int64(n)); cbErr != nil {
					must.Close(temp, nil)
					if options.Transactional {
						must.OSRemove(writePath, nil)
					}
					return afs.CopyResult{}, cbErr
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			must.Close(temp, nil)
			if options.Transactional {
				must.OSRemove(writePath, nil)
			}
			return afs.CopyResult{}, translateStatError(readErr)
		}
	}

	if err := temp.Sync(); err != nil {
		must.Close(temp, nil)
		if options.Transactional {
			must.OSRemove(writePath, nil)
		}
		return afs.CopyResult{}, translateStatError(err)
	}
	if err := temp.Close(); err != nil {
		if options.Transactional {
			must.OSRemove(writePath, nil)
		}
		return afs.CopyResult{}, translateStatError(err)
	}

	setModTimeFailed := false
	modTime := sourceAttrs.ModTime
	if err := setModTime(writePath, modTime); err != nil {
		setModTimeFailed = true
	}
	if options.CopyPermissions {
		if info, statErr := os.Lstat(nativePath(source)); statErr == nil {
			_ = applyPermissions(writePath, info.Mode().Perm())
		}
	}

	if options.Transactional {
		if options.PreDelete != nil {
			if err := options.PreDelete(); err != nil {
				must.OSRemove(writePath, nil)
				return afs.CopyResult{}, err
			}
		}
		if err := os.Rename(writePath, targetNative); err != nil {
			must.OSRemove(writePath, nil)
			return afs.CopyResult{}, translateStatError(err)
		}
	}

	finalInfo, statErr := os.Lstat(targetNative)
	var targetFingerprint afs.Fingerprint
	if statErr == nil {
		targetFingerprint = attributesOf(finalInfo).Fingerprint
	}

	return afs.CopyResult{
		Size:              uint64(written),
		ModTime:           modTime,
		SourceFingerprint: sourceAttrs.Fingerprint,
		TargetFingerprint: targetFingerprint,
		SetModTimeFailed:  setModTimeFailed,
	}, nil
}

// HasNativeTransactionalCopy implements afs.Backend.HasNativeTransactionalCopy.
// The local backend performs its own write-temp-then-rename dance above,
// so it already is the native implementation.
func (b *Backend) HasNativeTransactionalCopy() bool { return true }

// SupportsRecycleBin implements afs.Backend.SupportsRecycleBin.
func (b *Backend) SupportsRecycleBin() bool { return recycleBinAvailable() }

// CreateRecycleSession implements afs.Backend.CreateRecycleSession.
func (b *Backend) CreateRecycleSession(ctx context.Context) (afs.RecycleSession, error) {
	if !recycleBinAvailable() {
		return nil, afs.ErrRecycleUnsupported
	}
	return newRecycleSession(), nil
}

// FreeDiskSpace implements afs.Backend.FreeDiskSpace.
func (b *Backend) FreeDiskSpace(ctx context.Context, path afs.Path) (uint64, error) {
	return freeDiskSpace(nativePath(path))
}
