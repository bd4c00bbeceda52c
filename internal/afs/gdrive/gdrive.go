// Package gdrive implements the Abstract File System interface over
// Google Drive, grounded on rclone's backend/drive: a single
// *drive.Service driving Files.List/Create/Update/Delete/Copy, with a
// small path-to-file-ID cache standing in for rclone's dirCache since
// Drive addresses everything by file ID rather than by path.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/foldersync/foldersync/internal/afs"
)

const folderMimeType = "application/vnd.google-apps.folder"

// timeLayout is the RFC 3339 form Drive's modifiedTime field uses.
const timeLayout = time.RFC3339

// Config names the OAuth2 token and root folder a Backend operates
// against.
type Config struct {
	TokenSource oauth2.TokenSource
	// RootFolderID is the Drive file ID the device's path root resolves
	// to (typically a shared folder or "root" for My Drive).
	RootFolderID string
}

// Backend implements afs.Backend over a single Drive account, scoped
// beneath Config.RootFolderID.
type Backend struct {
	device afs.DeviceID
	config Config

	svc *drive.Service

	mu    sync.Mutex
	ids   map[string]string // slash-joined relative path -> file ID
}

// New constructs a Drive backend for the given device identifier.
func New(device afs.DeviceID, config Config) *Backend {
	return &Backend{device: device, config: config, ids: map[string]string{"": config.RootFolderID}}
}

// Device returns the backend's device identifier.
func (b *Backend) Device() afs.DeviceID { return b.device }

// Connect builds the underlying *drive.Service from the configured
// token source. It is idempotent.
func (b *Backend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.svc != nil {
		return nil
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(b.config.TokenSource))
	if err != nil {
		return err
	}
	b.svc = svc
	return nil
}

func key(p afs.Path) string { return strings.Join(p.Segments, "/") }

// resolveID returns the Drive file ID for path, querying Files.List by
// (parent, name) one segment at a time and caching every ID discovered
// along the way, the way rclone's dirCache avoids re-walking the whole
// path on every call.
func (b *Backend) resolveID(ctx context.Context, p afs.Path) (string, error) {
	b.mu.Lock()
	if id, ok := b.ids[key(p)]; ok {
		b.mu.Unlock()
		return id, nil
	}
	b.mu.Unlock()

	parentID, err := b.resolveID(ctx, p.Parent())
	if err != nil {
		return "", err
	}
	name := p.Name()
	query := fmt.Sprintf("'%s' in parents and name = '%s' and trashed = false", parentID, escapeQuery(name))
	list, err := b.svc.Files.List().Q(query).Fields(googleapi.Field("files(id, mimeType, size, modifiedTime)")).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(list.Files) == 0 {
		return "", afs.ErrNotExist
	}
	id := list.Files[0].Id
	b.mu.Lock()
	b.ids[key(p)] = id
	b.mu.Unlock()
	return id, nil
}

func escapeQuery(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, `\`, `\\`), `'`, `\'`)
}

func (b *Backend) forget(p afs.Path) {
	b.mu.Lock()
	delete(b.ids, key(p))
	b.mu.Unlock()
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 404:
			return afs.ErrNotExist
		case 403:
			return afs.ErrPermission
		}
	}
	if errors.Is(err, afs.ErrNotExist) {
		return afs.ErrNotExist
	}
	return err
}

func itemTypeOf(f *drive.File) afs.ItemType {
	if f.MimeType == folderMimeType {
		return afs.ItemTypeFolder
	}
	return afs.ItemTypeFile
}

func attrsOf(f *drive.File) afs.FileAttributes {
	var modTime int64
	if t, err := time.Parse(timeLayout, f.ModifiedTime); err == nil {
		modTime = t.Unix()
	}
	return afs.FileAttributes{ModTime: modTime, Size: uint64(f.Size)}
}

// GetItemType implements afs.Backend.GetItemType.
func (b *Backend) GetItemType(ctx context.Context, p afs.Path) (afs.ItemType, afs.FileAttributes, error) {
	id, err := b.resolveID(ctx, p)
	if err != nil {
		return 0, afs.FileAttributes{}, translateError(err)
	}
	f, err := b.svc.Files.Get(id).Fields(googleapi.Field("id, mimeType, size, modifiedTime")).Context(ctx).Do()
	if err != nil {
		return 0, afs.FileAttributes{}, translateError(err)
	}
	return itemTypeOf(f), attrsOf(f), nil
}

// ItemExists implements afs.Backend.ItemExists.
func (b *Backend) ItemExists(ctx context.Context, p afs.Path) (bool, error) {
	if _, err := b.resolveID(ctx, p); err != nil {
		if translateError(err) == afs.ErrNotExist {
			return false, nil
		}
		return false, translateError(err)
	}
	return true, nil
}

// ReadStream implements afs.Backend.ReadStream.
func (b *Backend) ReadStream(ctx context.Context, p afs.Path) (io.ReadCloser, error) {
	id, err := b.resolveID(ctx, p)
	if err != nil {
		return nil, translateError(err)
	}
	resp, err := b.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, translateError(err)
	}
	return resp.Body, nil
}

// WriteStream implements afs.Backend.WriteStream. Drive has no
// open-then-stream primitive; the returned writer buffers in memory and
// performs a single Files.Create/Update call on Close, mirroring the
// simple (non-resumable) upload path rclone falls back to for small
// files.
func (b *Backend) WriteStream(ctx context.Context, p afs.Path) (io.WriteCloser, error) {
	return &driveWriter{ctx: ctx, backend: b, path: p}, nil
}

type driveWriter struct {
	ctx     context.Context
	backend *Backend
	path    afs.Path
	buf     []byte
}

func (w *driveWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *driveWriter) Close() error {
	parentID, err := w.backend.resolveID(w.ctx, w.path.Parent())
	if err != nil {
		return translateError(err)
	}
	if id, err := w.backend.resolveID(w.ctx, w.path); err == nil {
		_, err := w.backend.svc.Files.Update(id, &drive.File{}).Media(newReader(w.buf)).Context(w.ctx).Do()
		return translateError(err)
	}
	created, err := w.backend.svc.Files.Create(&drive.File{
		Name:    w.path.Name(),
		Parents: []string{parentID},
	}).Media(newReader(w.buf)).Fields(googleapi.Field("id")).Context(w.ctx).Do()
	if err != nil {
		return translateError(err)
	}
	w.backend.mu.Lock()
	w.backend.ids[key(w.path)] = created.Id
	w.backend.mu.Unlock()
	return nil
}

func newReader(b []byte) io.Reader { return strings.NewReader(string(b)) }

// CreateFolderPlain implements afs.Backend.CreateFolderPlain.
func (b *Backend) CreateFolderPlain(ctx context.Context, p afs.Path) error {
	if _, err := b.resolveID(ctx, p); err == nil {
		return nil
	}
	parentID, err := b.resolveID(ctx, p.Parent())
	if err != nil {
		return translateError(err)
	}
	created, err := b.svc.Files.Create(&drive.File{
		Name:     p.Name(),
		Parents:  []string{parentID},
		MimeType: folderMimeType,
	}).Fields(googleapi.Field("id")).Context(ctx).Do()
	if err != nil {
		return translateError(err)
	}
	b.mu.Lock()
	b.ids[key(p)] = created.Id
	b.mu.Unlock()
	return nil
}

// RenameItem implements afs.Backend.RenameItem. Drive has no concept of
// cross-device rename failures since every path under one Backend lives
// in the same account; this always renames/reparents in place.
func (b *Backend) RenameItem(ctx context.Context, source, target afs.Path) error {
	if source.Device != target.Device {
		return afs.ErrCrossDevice
	}
	id, err := b.resolveID(ctx, source)
	if err != nil {
		return translateError(err)
	}
	oldParentID, err := b.resolveID(ctx, source.Parent())
	if err != nil {
		return translateError(err)
	}
	newParentID, err := b.resolveID(ctx, target.Parent())
	if err != nil {
		return translateError(err)
	}
	call := b.svc.Files.Update(id, &drive.File{Name: target.Name()}).Context(ctx)
	if oldParentID != newParentID {
		call = call.AddParents(newParentID).RemoveParents(oldParentID)
	}
	if _, err := call.Do(); err != nil {
		return translateError(err)
	}
	b.forget(source)
	b.mu.Lock()
	b.ids[key(target)] = id
	b.mu.Unlock()
	return nil
}

// RemoveFilePlain implements afs.Backend.RemoveFilePlain.
func (b *Backend) RemoveFilePlain(ctx context.Context, p afs.Path) error {
	id, err := b.resolveID(ctx, p)
	if err != nil {
		return translateError(err)
	}
	if err := b.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return translateError(err)
	}
	b.forget(p)
	return nil
}

// RemoveFolderRecursion implements afs.Backend.RemoveFolderRecursion.
// Drive deletes a folder and everything beneath it in one call, so the
// per-child callback is driven from a best-effort listing taken first.
func (b *Backend) RemoveFolderRecursion(ctx context.Context, p afs.Path, onItem func(afs.Path, afs.ItemType)) error {
	if onItem != nil {
		b.walkChildren(ctx, p, onItem)
	}
	id, err := b.resolveID(ctx, p)
	if err != nil {
		return translateError(err)
	}
	if err := b.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return translateError(err)
	}
	b.forget(p)
	return nil
}

func (b *Backend) walkChildren(ctx context.Context, p afs.Path, onItem func(afs.Path, afs.ItemType)) {
	b.TraverseFolder(ctx, p, func(name string, itemType afs.ItemType, _ afs.FileAttributes) error {
		child := p.Join(name)
		if itemType == afs.ItemTypeFolder {
			b.walkChildren(ctx, child, onItem)
		}
		onItem(child, itemType)
		return nil
	})
}

// CopySymlink implements afs.Backend.CopySymlink. Drive has no symlink
// concept; base folders holding symlinks against a Drive side should
// configure the exclude symlink policy.
func (b *Backend) CopySymlink(ctx context.Context, source, target afs.Path) error {
	return afs.ErrRenameUnsupported
}

// TraverseFolder implements afs.Backend.TraverseFolder.
func (b *Backend) TraverseFolder(ctx context.Context, p afs.Path, callback afs.TraverseCallback) error {
	id, err := b.resolveID(ctx, p)
	if err != nil {
		return translateError(err)
	}
	pageToken := ""
	for {
		call := b.svc.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", id)).
			Fields(googleapi.Field("nextPageToken, files(id, name, mimeType, size, modifiedTime)")).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return translateError(err)
		}
		for _, f := range list.Files {
			b.mu.Lock()
			b.ids[key(p.Join(f.Name))] = f.Id
			b.mu.Unlock()
			if err := callback(f.Name, itemTypeOf(f), attrsOf(f)); err != nil {
				return err
			}
		}
		if list.NextPageToken == "" {
			return nil
		}
		pageToken = list.NextPageToken
	}
}

// CopyFileTransactional implements afs.Backend.CopyFileTransactional.
// Drive's Files.Copy is itself atomic (the target either appears fully
// formed or not at all), so this never needs its own temp-then-rename
// staging.
func (b *Backend) CopyFileTransactional(ctx context.Context, source afs.Path, sourceAttrs afs.FileAttributes, target afs.Path, options afs.CopyOptions) (afs.CopyResult, error) {
	sourceID, err := b.resolveID(ctx, source)
	if err != nil {
		return afs.CopyResult{}, translateError(err)
	}
	parentID, err := b.resolveID(ctx, target.Parent())
	if err != nil {
		return afs.CopyResult{}, translateError(err)
	}

	if options.PreDelete != nil {
		if err := options.PreDelete(); err != nil {
			return afs.CopyResult{}, err
		}
	}

	modTime := time.Unix(sourceAttrs.ModTime, 0).UTC().Format(timeLayout)
	created, err := b.svc.Files.Copy(sourceID, &drive.File{
		Name:         target.Name(),
		Parents:      []string{parentID},
		ModifiedTime: modTime,
	}).Fields(googleapi.Field("id, size, modifiedTime")).Context(ctx).Do()
	if err != nil {
		return afs.CopyResult{}, translateError(err)
	}
	b.mu.Lock()
	b.ids[key(target)] = created.Id
	b.mu.Unlock()

	if options.OnBytes != nil {
		options.OnBytes(created.Size)
	}

	return afs.CopyResult{
		Size:              uint64(created.Size),
		ModTime:           sourceAttrs.ModTime,
		SourceFingerprint: sourceAttrs.Fingerprint,
	}, nil
}

// HasNativeTransactionalCopy implements afs.Backend.HasNativeTransactionalCopy.
func (b *Backend) HasNativeTransactionalCopy() bool { return true }

// SupportsRecycleBin implements afs.Backend.SupportsRecycleBin: Drive's
// trash is exactly the recycle-bin abstraction the engine wants.
func (b *Backend) SupportsRecycleBin() bool { return true }

// CreateRecycleSession implements afs.Backend.CreateRecycleSession.
func (b *Backend) CreateRecycleSession(ctx context.Context) (afs.RecycleSession, error) {
	return &recycleSession{backend: b}, nil
}

type recycleSession struct {
	backend *Backend
	staged  []afs.Path
}

func (s *recycleSession) Recycle(ctx context.Context, path afs.Path) error {
	s.staged = append(s.staged, path)
	return nil
}

func (s *recycleSession) Finalize(ctx context.Context) error {
	for _, p := range s.staged {
		id, err := s.backend.resolveID(ctx, p)
		if err != nil {
			return translateError(err)
		}
		trashed := true
		if _, err := s.backend.svc.Files.Update(id, &drive.File{Trashed: trashed}).Context(ctx).Do(); err != nil {
			return translateError(err)
		}
		s.backend.forget(p)
	}
	return nil
}

// FreeDiskSpace implements afs.Backend.FreeDiskSpace via the About
// resource's storage quota.
func (b *Backend) FreeDiskSpace(ctx context.Context, p afs.Path) (uint64, error) {
	about, err := b.svc.About.Get().Fields(googleapi.Field("storageQuota")).Context(ctx).Do()
	if err != nil {
		return 0, translateError(err)
	}
	if about.StorageQuota == nil || about.StorageQuota.Limit == 0 {
		return 0, nil
	}
	used := about.StorageQuota.UsageInDrive
	if about.StorageQuota.Limit <= used {
		return 0, nil
	}
	return uint64(about.StorageQuota.Limit - used), nil
}
