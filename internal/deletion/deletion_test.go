package deletion

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/foldersync/foldersync/internal/afs"
)

// memBackend is a minimal in-memory afs.Backend sufficient to exercise
// the deletion handlers. Unimplemented capabilities panic rather than
// silently misbehaving, since no test here should reach them.
type memBackend struct {
	files   map[string][]byte
	folders map[string]bool
	renameErr error
}

func key(p afs.Path) string {
	s := ""
	for i, seg := range p.Segments {
		if i > 0 {
			s += "/"
		}
		s += seg
	}
	return s
}

func newMemBackend() *memBackend {
	return &memBackend{files: map[string][]byte{}, folders: map[string]bool{"": true}}
}

func (b *memBackend) Connect(context.Context) error { return nil }

func (b *memBackend) GetItemType(_ context.Context, p afs.Path) (afs.ItemType, afs.FileAttributes, error) {
	k := key(p)
	if b.folders[k] {
		return afs.ItemTypeFolder, afs.FileAttributes{}, nil
	}
	if data, ok := b.files[k]; ok {
		return afs.ItemTypeFile, afs.FileAttributes{Size: uint64(len(data))}, nil
	}
	return 0, afs.FileAttributes{}, afs.ErrNotExist
}

func (b *memBackend) ItemExists(_ context.Context, p afs.Path) (bool, error) {
	k := key(p)
	_, isFile := b.files[k]
	return isFile || b.folders[k], nil
}

func (b *memBackend) ReadStream(context.Context, afs.Path) (io.ReadCloser, error) {
	panic("not needed")
}

func (b *memBackend) WriteStream(context.Context, afs.Path) (io.WriteCloser, error) {
	panic("not needed")
}

func (b *memBackend) CreateFolderPlain(_ context.Context, p afs.Path) error {
	b.folders[key(p)] = true
	return nil
}

func (b *memBackend) RenameItem(_ context.Context, source, target afs.Path) error {
	if b.renameErr != nil {
		return b.renameErr
	}
	data, ok := b.files[key(source)]
	if !ok {
		return afs.ErrNotExist
	}
	delete(b.files, key(source))
	b.files[key(target)] = data
	return nil
}

func (b *memBackend) RemoveFilePlain(_ context.Context, p afs.Path) error {
	delete(b.files, key(p))
	return nil
}

func (b *memBackend) RemoveFolderRecursion(_ context.Context, p afs.Path, onItem func(afs.Path, afs.ItemType)) error {
	prefix := key(p)
	delete(b.folders, prefix)
	return nil
}

func (b *memBackend) CopySymlink(_ context.Context, source, target afs.Path) error {
	b.files[key(target)] = b.files[key(source)]
	return nil
}

func (b *memBackend) TraverseFolder(_ context.Context, p afs.Path, callback afs.TraverseCallback) error {
	prefix := key(p)
	for k, data := range b.files {
		parent, name := splitLast(k)
		if parent == prefix {
			if err := callback(name, afs.ItemTypeFile, afs.FileAttributes{Size: uint64(len(data))}); err != nil {
				return err
			}
		}
	}
	return nil
}

func splitLast(k string) (parent, name string) {
	idx := -1
	for i := len(k) - 1; i >= 0; i-- {
		if k[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", k
	}
	return k[:idx], k[idx+1:]
}

func (b *memBackend) CopyFileTransactional(_ context.Context, source afs.Path, _ afs.FileAttributes, target afs.Path, _ afs.CopyOptions) (afs.CopyResult, error) {
	data, ok := b.files[key(source)]
	if !ok {
		return afs.CopyResult{}, afs.ErrNotExist
	}
	b.files[key(target)] = data
	return afs.CopyResult{Size: uint64(len(data))}, nil
}

func (b *memBackend) HasNativeTransactionalCopy() bool { return false }
func (b *memBackend) SupportsRecycleBin() bool         { return false }
func (b *memBackend) CreateRecycleSession(context.Context) (afs.RecycleSession, error) {
	return nil, afs.ErrRecycleUnsupported
}
func (b *memBackend) FreeDiskSpace(context.Context, afs.Path) (uint64, error) { return 0, nil }

func path(segs ...string) afs.Path {
	return afs.Path{Device: "test", Segments: segs}
}

func TestPermanentDeleteFile(t *testing.T) {
	b := newMemBackend()
	b.files["a.txt"] = []byte("x")
	if err := (Permanent{}).Delete(context.Background(), b, path("a.txt"), afs.ItemTypeFile, "a.txt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := b.files["a.txt"]; ok {
		t.Fatalf("expected file removed")
	}
}

func TestVersionerReplaceMovesFileUnderRoot(t *testing.T) {
	b := newMemBackend()
	b.files["src/a.txt"] = []byte("x")
	v := &Versioner{VersioningRoot: path("Old"), Style: Replace}

	if err := v.Delete(context.Background(), b, path("src", "a.txt"), afs.ItemTypeFile, "src/a.txt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := b.files["Old/src/a.txt"]; !ok {
		t.Fatalf("expected versioned copy at Old/src/a.txt, got %v", b.files)
	}
}

func TestVersionerTimestampFileAppendsBeforeExtension(t *testing.T) {
	b := newMemBackend()
	b.files["a.txt"] = []byte("x")
	fixed := time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)
	v := &Versioner{VersioningRoot: path("Old"), Style: TimestampFile, Now: func() time.Time { return fixed }}

	if err := v.Delete(context.Background(), b, path("a.txt"), afs.ItemTypeFile, "a.txt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Old/a 2024-03-01 123045.txt"
	if _, ok := b.files[want]; !ok {
		t.Fatalf("expected versioned file at %q, got %v", want, b.files)
	}
}

func TestVersionerFallsBackToCopyOnCrossDeviceRename(t *testing.T) {
	b := newMemBackend()
	b.files["a.txt"] = []byte("payload")
	b.renameErr = afs.ErrCrossDevice
	v := &Versioner{VersioningRoot: path("Old"), Style: Replace}

	if err := v.Delete(context.Background(), b, path("a.txt"), afs.ItemTypeFile, "a.txt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := b.files["Old/a.txt"]; !ok {
		t.Fatalf("expected copy-fallback to land at Old/a.txt, got %v", b.files)
	}
	if _, ok := b.files["a.txt"]; ok {
		t.Fatalf("expected source removed after copy fallback")
	}
}
