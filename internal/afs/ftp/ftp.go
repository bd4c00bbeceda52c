// Package ftp implements the Abstract File System interface over plain
// FTP, using github.com/jlaffaye/ftp the same way rclone's backend/ftp
// does: one control connection per Backend, re-logged-in lazily by
// Connect, driving STOR/RETR/RNFR+RNTO/DELE/MKD/RMD/LIST.
package ftp

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/foldersync/foldersync/internal/afs"
)

// Config names the remote host and credentials a Backend connects with.
type Config struct {
	Address  string // "host:port"
	User     string
	Password string
}

// Backend implements afs.Backend over a single FTP control connection.
// FTP offers no concurrent-command pipelining on one connection, so a
// Backend serializes every call behind mu.
type Backend struct {
	device afs.DeviceID
	config Config

	mu   sync.Mutex
	conn *ftp.ServerConn
}

// New constructs an FTP backend for the given device identifier.
func New(device afs.DeviceID, config Config) *Backend {
	return &Backend{device: device, config: config}
}

// Device returns the backend's device identifier.
func (b *Backend) Device() afs.DeviceID { return b.device }

// Connect dials and logs into the FTP server. It is idempotent.
func (b *Backend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return nil
	}
	conn, err := ftp.Dial(b.config.Address, ftp.DialWithContext(ctx))
	if err != nil {
		return err
	}
	if err := conn.Login(b.config.User, b.config.Password); err != nil {
		conn.Quit()
		return err
	}
	b.conn = conn
	return nil
}

func remotePath(p afs.Path) string {
	return "/" + path.Join(p.Segments...)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	message := err.Error()
	switch {
	case strings.Contains(message, "550"):
		return afs.ErrNotExist
	case strings.Contains(message, "530") || strings.Contains(message, "553"):
		return afs.ErrPermission
	default:
		return err
	}
}

// GetItemType implements afs.Backend.GetItemType. It looks the item up
// with the server's single-entry query and maps the reported entry type
// through entryType: folders become ItemTypeFolder, links become
// ItemTypeSymlink, and everything else ItemTypeFile.
func (b *Backend) GetItemType(ctx context.Context, p afs.Path) (afs.ItemType, afs.FileAttributes, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, err := b.conn.GetEntry(remotePath(p))
	if err != nil {
		return 0, afs.FileAttributes{}, translateError(err)
	}
	return entryType(entry), entryAttrs(entry), nil
}

func entryType(entry *ftp.Entry) afs.ItemType {
	switch entry.Type {
	case ftp.EntryTypeFolder:
		return afs.ItemTypeFolder
	case ftp.EntryTypeLink:
		return afs.ItemTypeSymlink
	default:
		return afs.ItemTypeFile
	}
}

func entryAttrs(entry *ftp.Entry) afs.FileAttributes {
	return afs.FileAttributes{ModTime: entry.Time.Unix(), Size: entry.Size}
}

// ItemExists implements afs.Backend.ItemExists.
func (b *Backend) ItemExists(ctx context.Context, p afs.Path) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.conn.GetEntry(remotePath(p)); err != nil {
		if translateError(err) == afs.ErrNotExist {
			return false, nil
		}
		return false, translateError(err)
	}
	return true, nil
}

// ReadStream implements afs.Backend.ReadStream.
func (b *Backend) ReadStream(ctx context.Context, p afs.Path) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	resp, err := b.conn.Retr(remotePath(p))
	if err != nil {
		return nil, translateError(err)
	}
	return resp, nil
}

// WriteStream implements afs.Backend.WriteStream. FTP's STOR is a single
// streamed upload, so the caller must supply all bytes via the returned
// writer before closing it; there is no separate "open for write" step.
func (b *Backend) WriteStream(ctx context.Context, p afs.Path) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		done <- b.conn.Stor(remotePath(p), pr)
	}()
	return &storWriter{pw: pw, pr: pr, done: done}, nil
}

type storWriter struct {
	pw   *io.PipeWriter
	pr   *io.PipeReader
	done chan error
}

func (w *storWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *storWriter) Close() error {
	w.pw.Close()
	return <-w.done
}

// CreateFolderPlain implements afs.Backend.CreateFolderPlain.
func (b *Backend) CreateFolderPlain(ctx context.Context, p afs.Path) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.conn.MakeDir(remotePath(p)); err != nil {
		if _, statErr := b.conn.GetEntry(remotePath(p)); statErr == nil {
			return nil
		}
		return translateError(err)
	}
	return nil
}

// RenameItem implements afs.Backend.RenameItem via RNFR/RNTO.
func (b *Backend) RenameItem(ctx context.Context, source, target afs.Path) error {
	if source.Device != target.Device {
		return afs.ErrCrossDevice
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.conn.Rename(remotePath(source), remotePath(target)); err != nil {
		return afs.ErrRenameUnsupported
	}
	return nil
}

// RemoveFilePlain implements afs.Backend.RemoveFilePlain.
func (b *Backend) RemoveFilePlain(ctx context.Context, p afs.Path) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.conn.Delete(remotePath(p)); err != nil {
		return translateError(err)
	}
	return nil
}

// RemoveFolderRecursion implements afs.Backend.RemoveFolderRecursion,
// listing depth-first since FTP's RMD refuses a non-empty directory.
func (b *Backend) RemoveFolderRecursion(ctx context.Context, p afs.Path, onItem func(afs.Path, afs.ItemType)) error {
	if err := b.removeChildren(ctx, p, onItem); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.conn.RemoveDir(remotePath(p)); err != nil {
		return translateError(err)
	}
	return nil
}

func (b *Backend) removeChildren(ctx context.Context, p afs.Path, onItem func(afs.Path, afs.ItemType)) error {
	b.mu.Lock()
	entries, err := b.conn.List(remotePath(p))
	b.mu.Unlock()
	if err != nil {
		return translateError(err)
	}
	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		child := p.Join(entry.Name)
		itemType := entryType(entry)
		if itemType == afs.ItemTypeFolder {
			if err := b.removeChildren(ctx, child, onItem); err != nil {
				return err
			}
			b.mu.Lock()
			err := b.conn.RemoveDir(remotePath(child))
			b.mu.Unlock()
			if err != nil {
				return translateError(err)
			}
		} else {
			b.mu.Lock()
			err := b.conn.Delete(remotePath(child))
			b.mu.Unlock()
			if err != nil {
				return translateError(err)
			}
		}
		if onItem != nil {
			onItem(child, itemType)
		}
	}
	return nil
}

// CopySymlink implements afs.Backend.CopySymlink. Plain FTP has no
// symlink-creation command, so this is unsupported; base folders holding
// symlinks against an FTP side should configure the exclude symlink
// policy.
func (b *Backend) CopySymlink(ctx context.Context, source, target afs.Path) error {
	return afs.ErrRenameUnsupported
}

// TraverseFolder implements afs.Backend.TraverseFolder.
func (b *Backend) TraverseFolder(ctx context.Context, p afs.Path, callback afs.TraverseCallback) error {
	b.mu.Lock()
	entries, err := b.conn.List(remotePath(p))
	b.mu.Unlock()
	if err != nil {
		return translateError(err)
	}
	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		if err := callback(entry.Name, entryType(entry), entryAttrs(entry)); err != nil {
			return err
		}
	}
	return nil
}

// CopyFileTransactional implements afs.Backend.CopyFileTransactional by
// staging to a sibling temp name via STOR, then RNFR/RNTO onto the
// target: FTP has no atomic write-then-publish primitive of its own.
func (b *Backend) CopyFileTransactional(ctx context.Context, source afs.Path, sourceAttrs afs.FileAttributes, target afs.Path, options afs.CopyOptions) (afs.CopyResult, error) {
	b.mu.Lock()
	resp, err := b.conn.Retr(remotePath(source))
	b.mu.Unlock()
	if err != nil {
		return afs.CopyResult{}, translateError(err)
	}
	defer resp.Close()

	targetPath := target
	if options.Transactional {
		targetPath = target.Parent().Join(target.Name() + ".fsync-tmp")
	}

	var reader io.Reader = resp
	var written int64
	if options.OnBytes != nil {
		reader = &countingReader{r: resp, onBytes: options.OnBytes, total: &written}
	} else {
		reader = &countingReader{r: resp, total: &written}
	}

	b.mu.Lock()
	storErr := b.conn.Stor(remotePath(targetPath), reader)
	b.mu.Unlock()
	if storErr != nil {
		return afs.CopyResult{}, translateError(storErr)
	}

	setModTimeFailed := false
	b.mu.Lock()
	timeErr := b.conn.SetTime(remotePath(targetPath), time.Unix(sourceAttrs.ModTime, 0).UTC())
	b.mu.Unlock()
	if timeErr != nil {
		setModTimeFailed = true
	}

	if options.Transactional {
		if options.PreDelete != nil {
			if err := options.PreDelete(); err != nil {
				b.mu.Lock()
				b.conn.Delete(remotePath(targetPath))
				b.mu.Unlock()
				return afs.CopyResult{}, err
			}
		}
		b.mu.Lock()
		renameErr := b.conn.Rename(remotePath(targetPath), remotePath(target))
		b.mu.Unlock()
		if renameErr != nil {
			b.mu.Lock()
			b.conn.Delete(remotePath(targetPath))
			b.mu.Unlock()
			return afs.CopyResult{}, translateError(renameErr)
		}
	}

	return afs.CopyResult{
		Size:              uint64(written),
		ModTime:           sourceAttrs.ModTime,
		SourceFingerprint: sourceAttrs.Fingerprint,
		SetModTimeFailed:  setModTimeFailed,
	}, nil
}

type countingReader struct {
	r       io.Reader
	onBytes afs.ByteDeltaCallback
	total   *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		*c.total += int64(n)
		if c.onBytes != nil {
			c.onBytes(int64(n))
		}
	}
	return n, err
}

// HasNativeTransactionalCopy implements afs.Backend.HasNativeTransactionalCopy.
func (b *Backend) HasNativeTransactionalCopy() bool { return true }

// SupportsRecycleBin implements afs.Backend.SupportsRecycleBin.
func (b *Backend) SupportsRecycleBin() bool { return false }

// CreateRecycleSession implements afs.Backend.CreateRecycleSession.
func (b *Backend) CreateRecycleSession(ctx context.Context) (afs.RecycleSession, error) {
	return nil, afs.ErrRecycleUnsupported
}

// FreeDiskSpace implements afs.Backend.FreeDiskSpace. FTP has no
// standard free-space command, so this always reports unknown (0) rather
// than guessing; callers relying on disk-space pre-checks should not
// target FTP sides.
func (b *Backend) FreeDiskSpace(ctx context.Context, p afs.Path) (uint64, error) {
	return 0, nil
}

// Close logs out and closes the control connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	return b.conn.Quit()
}
