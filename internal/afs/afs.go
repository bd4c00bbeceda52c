// Package afs defines the Abstract File System: a single polymorphic
// interface over local and remote storage backends. The comparison and
// synchronization engines are written only against this interface; a
// backend (local disk, SFTP, FTP, Google Drive, ...) is free to implement
// it however best suits its transport.
package afs

import (
	"context"
	"errors"
	"io"
)

// ItemType is the type of an item discovered on a backend. Symlinks are
// never silently dereferenced at this layer; a caller must explicitly ask
// to follow one.
type ItemType uint8

const (
	// ItemTypeFile indicates a regular file.
	ItemTypeFile ItemType = iota
	// ItemTypeFolder indicates a directory.
	ItemTypeFolder
	// ItemTypeSymlink indicates a symbolic link.
	ItemTypeSymlink
)

// String renders the item type for diagnostics.
func (t ItemType) String() string {
	switch t {
	case ItemTypeFile:
		return "file"
	case ItemTypeFolder:
		return "folder"
	case ItemTypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Fingerprint is an opaque, backend-supplied integer identifying a file
// within its volume. A value of zero means "unknown", never "file zero".
type Fingerprint uint64

// Unknown reports whether the fingerprint carries no information.
func (f Fingerprint) Unknown() bool { return f == 0 }

// FileAttributes carries the metadata the engines need about a single item
// as observed during a scan.
type FileAttributes struct {
	// ModTime is the modification time, in signed seconds since the epoch.
	ModTime int64
	// Size is the item's size in bytes. Meaningless for folders.
	Size uint64
	// Fingerprint identifies the file on its volume, when the backend can
	// produce one; zero means unknown.
	Fingerprint Fingerprint
	// FollowedSymlink records whether this item was reached by following a
	// symlink during the scan that produced these attributes.
	FollowedSymlink bool
}

// DeviceID identifies a single backend instance: a local volume, a
// configured SFTP session, an FTP connection pool, or a Drive account. It
// is opaque to everything above the AFS layer.
type DeviceID string

// Path is a (device, relative-path) pair. Relative-path is a sequence of
// case-preserving item names; appending and parent-extraction are pure
// operations that never touch storage.
type Path struct {
	Device   DeviceID
	Segments []string
}

// NullPath is the distinguished absent-path sentinel used for "user left
// this side blank" and for move-source slots after a move completes.
var NullPath = Path{}

// IsNull reports whether p is the null path.
func (p Path) IsNull() bool {
	return p.Device == "" && len(p.Segments) == 0
}

// Join returns a new path with name appended as the final segment. It does
// not mutate p.
func (p Path) Join(name string) Path {
	segments := make([]string, len(p.Segments)+1)
	copy(segments, p.Segments)
	segments[len(p.Segments)] = name
	return Path{Device: p.Device, Segments: segments}
}

// Parent returns the path with its final segment removed. Calling Parent
// on a path with no segments returns the path unchanged.
func (p Path) Parent() Path {
	if len(p.Segments) == 0 {
		return p
	}
	segments := make([]string, len(p.Segments)-1)
	copy(segments, p.Segments[:len(p.Segments)-1])
	return Path{Device: p.Device, Segments: segments}
}

// Name returns the final path segment, or the empty string for a path
// with no segments.
func (p Path) Name() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}

// Common sentinel errors returned by Backend implementations. Engines
// branch on these directly, so backends must return them (or errors
// wrapping them) rather than ad-hoc equivalents.
var (
	// ErrNotExist indicates the source of an operation does not exist.
	ErrNotExist = errors.New("afs: item does not exist")
	// ErrLocked indicates the target of an operation is locked by another
	// process.
	ErrLocked = errors.New("afs: target is locked")
	// ErrPermission indicates the operation was denied by the backend.
	ErrPermission = errors.New("afs: permission denied")
	// ErrDiskFull indicates the backend ran out of storage mid-write.
	ErrDiskFull = errors.New("afs: disk full")
	// ErrCancelled indicates a caller-supplied callback requested
	// cancellation.
	ErrCancelled = errors.New("afs: operation cancelled")
	// ErrCrossDevice indicates a rename failed because source and target
	// live on different devices.
	ErrCrossDevice = errors.New("afs: rename across devices unsupported")
	// ErrRenameUnsupported indicates the backend does not support renames
	// at all (e.g. some MTP devices). The executor treats this
	// identically to ErrCrossDevice: fall back to copy+delete.
	ErrRenameUnsupported = errors.New("afs: backend does not support rename")
	// ErrRecycleUnsupported indicates the backend has no recycle bin.
	ErrRecycleUnsupported = errors.New("afs: backend does not support a recycle bin")
)

// ByteDeltaCallback is invoked periodically during streaming I/O with the
// number of additional bytes transferred since the last call. It may
// return an error (typically wrapping ErrCancelled) to abort the
// operation.
type ByteDeltaCallback func(delta int64) error

// PreDeleteHook is invoked by CopyFileTransactional immediately before the
// temporary file is renamed onto the target path. It may remove an
// existing target, or do nothing if there is none; it is free to return
// an error, which aborts the copy before any rename occurs.
type PreDeleteHook func() error

// CopyOptions configures a CopyFileTransactional call.
type CopyOptions struct {
	// CopyPermissions requests that source permissions/ACLs be replayed
	// onto the target, where the backend supports it.
	CopyPermissions bool
	// Transactional requests write-to-temp-then-rename semantics. If
	// false, the backend streams directly to the target and any handling
	// of an existing target is backend-defined.
	Transactional bool
	// PreDelete is invoked right before the transactional rename. Nil is
	// permitted when Transactional is false.
	PreDelete PreDeleteHook
	// OnBytes is invoked with unbuffered-I/O byte deltas as the copy
	// streams. May be nil.
	OnBytes ByteDeltaCallback
}

// CopyResult reports the outcome of a successful CopyFileTransactional
// call.
type CopyResult struct {
	// Size is the final size of the target, in bytes.
	Size uint64
	// ModTime is the modification time actually written to the target.
	ModTime int64
	// SourceFingerprint is the fingerprint of the source, as observed
	// during the copy.
	SourceFingerprint Fingerprint
	// TargetFingerprint is the fingerprint of the newly written target.
	TargetFingerprint Fingerprint
	// SetModTimeFailed is true if the backend could not faithfully replay
	// the source modification time onto the target. This is a warning,
	// not a failure: the copy still succeeded.
	SetModTimeFailed bool
}

// RecycleSession batches many small deletions into a single sweep,
// because recycling items one at a time through a per-call API is
// pathologically slow on some platforms (see Backend.CreateRecycleSession).
type RecycleSession interface {
	// Recycle stages path for recycling. It does not need to take effect
	// until Finalize is called.
	Recycle(ctx context.Context, path Path) error
	// Finalize performs the batched recycle sweep. It must be safe to
	// call exactly once, after which the session is no longer usable.
	Finalize(ctx context.Context) error
}

// TraverseCallback receives one entry per item discovered directly inside
// the folder passed to Backend.TraverseFolder (non-recursive).
type TraverseCallback func(name string, itemType ItemType, attrs FileAttributes) error

// Backend is the capability set every AFS implementation must provide.
// The comparison and synchronization engines are written only against
// this interface.
type Backend interface {
	// Connect performs any backend-specific session setup (SSH handshake,
	// OAuth token refresh, FTP login). It must be safe to call multiple
	// times; subsequent calls are no-ops once connected.
	Connect(ctx context.Context) error

	// GetItemType reports the type of the item at path without
	// dereferencing symlinks.
	GetItemType(ctx context.Context, path Path) (ItemType, FileAttributes, error)

	// ItemExists is a fast existence check; it must not error on
	// not-found, returning (false, nil) instead.
	ItemExists(ctx context.Context, path Path) (bool, error)

	// ReadStream opens path for reading. The caller must close the
	// returned ReadCloser.
	ReadStream(ctx context.Context, path Path) (io.ReadCloser, error)

	// WriteStream opens path for writing, creating it if necessary.
	// Behavior when the target already exists is backend-defined; callers
	// needing atomicity must use CopyFileTransactional instead.
	WriteStream(ctx context.Context, path Path) (io.WriteCloser, error)

	// CreateFolderPlain creates a single folder (not recursively). It must
	// treat "already exists as a folder" as success.
	CreateFolderPlain(ctx context.Context, path Path) error

	// RenameItem performs an atomic rename within a single device. It
	// returns an error wrapping ErrCrossDevice or ErrRenameUnsupported
	// when the backend cannot satisfy the request in place.
	RenameItem(ctx context.Context, source, target Path) error

	// RemoveFilePlain removes a single file or symlink.
	RemoveFilePlain(ctx context.Context, path Path) error

	// RemoveFolderRecursion removes a folder and everything beneath it,
	// invoking onItem once per removed descendant (for statistics).
	RemoveFolderRecursion(ctx context.Context, path Path, onItem func(Path, ItemType)) error

	// CopySymlink replicates a symlink's target string onto a new path on
	// the same or a different device without following it.
	CopySymlink(ctx context.Context, source, target Path) error

	// TraverseFolder lists the direct children of path, invoking callback
	// once per child. It does not recurse.
	TraverseFolder(ctx context.Context, path Path, callback TraverseCallback) error

	// CopyFileTransactional is the core copy primitive described in
	// spec.md/SPEC_FULL.md §4.1. See CopyOptions/CopyResult for the exact
	// contract.
	CopyFileTransactional(ctx context.Context, source Path, sourceAttrs FileAttributes, target Path, options CopyOptions) (CopyResult, error)

	// HasNativeTransactionalCopy reports whether CopyFileTransactional
	// already provides rename-on-complete semantics natively, so callers
	// building their own layered atomicity (e.g. the LSSDB writer) can
	// skip their own temp-file choreography. Per DESIGN.md Open
	// Question (a), the LSSDB writer ignores this and stages unconditionally.
	HasNativeTransactionalCopy() bool

	// SupportsRecycleBin reports whether CreateRecycleSession will
	// succeed.
	SupportsRecycleBin() bool

	// CreateRecycleSession returns a new batched recycle session. It
	// returns an error wrapping ErrRecycleUnsupported if the backend has
	// no recycle bin.
	CreateRecycleSession(ctx context.Context) (RecycleSession, error)

	// FreeDiskSpace reports the free space available at path's device, in
	// bytes, or an error if the backend cannot determine it.
	FreeDiskSpace(ctx context.Context, path Path) (uint64, error)
}
