package syncexec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/deletion"
	"github.com/foldersync/foldersync/internal/plan"
)

var errNotSupported = errors.New("not supported in this fake")

// fakeBackend is a minimal in-memory afs.Backend used to exercise the
// executor's leaf operations end to end.
type fakeBackend struct {
	files     map[string][]byte
	folders   map[string]bool
	renameErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{files: map[string][]byte{}, folders: map[string]bool{"": true}}
}

func fkey(p afs.Path) string {
	out := ""
	for i, s := range p.Segments {
		if i > 0 {
			out += "/"
		}
		out += s
	}
	return out
}

func (b *fakeBackend) Connect(context.Context) error { return nil }

func (b *fakeBackend) GetItemType(_ context.Context, p afs.Path) (afs.ItemType, afs.FileAttributes, error) {
	k := fkey(p)
	if b.folders[k] {
		return afs.ItemTypeFolder, afs.FileAttributes{}, nil
	}
	if data, ok := b.files[k]; ok {
		return afs.ItemTypeFile, afs.FileAttributes{Size: uint64(len(data))}, nil
	}
	return 0, afs.FileAttributes{}, afs.ErrNotExist
}

func (b *fakeBackend) ItemExists(_ context.Context, p afs.Path) (bool, error) {
	k := fkey(p)
	_, isFile := b.files[k]
	return isFile || b.folders[k], nil
}

func (b *fakeBackend) ReadStream(_ context.Context, p afs.Path) (io.ReadCloser, error) {
	data, ok := b.files[fkey(p)]
	if !ok {
		return nil, afs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBackend) WriteStream(_ context.Context, p afs.Path) (io.WriteCloser, error) {
	return nil, errNotSupported
}

func (b *fakeBackend) CreateFolderPlain(_ context.Context, p afs.Path) error {
	b.folders[fkey(p)] = true
	return nil
}

func (b *fakeBackend) RenameItem(_ context.Context, source, target afs.Path) error {
	if b.renameErr != nil {
		return b.renameErr
	}
	data, ok := b.files[fkey(source)]
	if !ok {
		return afs.ErrNotExist
	}
	delete(b.files, fkey(source))
	b.files[fkey(target)] = data
	return nil
}

func (b *fakeBackend) RemoveFilePlain(_ context.Context, p afs.Path) error {
	delete(b.files, fkey(p))
	return nil
}

func (b *fakeBackend) RemoveFolderRecursion(_ context.Context, p afs.Path, _ func(afs.Path, afs.ItemType)) error {
	delete(b.folders, fkey(p))
	return nil
}

func (b *fakeBackend) CopySymlink(_ context.Context, source, target afs.Path) error {
	b.files[fkey(target)] = b.files[fkey(source)]
	return nil
}

func (b *fakeBackend) TraverseFolder(context.Context, afs.Path, afs.TraverseCallback) error {
	return nil
}

func (b *fakeBackend) CopyFileTransactional(_ context.Context, source afs.Path, _ afs.FileAttributes, target afs.Path, options afs.CopyOptions) (afs.CopyResult, error) {
	data, ok := b.files[fkey(source)]
	if !ok {
		return afs.CopyResult{}, afs.ErrNotExist
	}
	if options.PreDelete != nil {
		if err := options.PreDelete(); err != nil {
			return afs.CopyResult{}, err
		}
	}
	b.files[fkey(target)] = data
	if options.OnBytes != nil {
		_ = options.OnBytes(int64(len(data)))
	}
	return afs.CopyResult{Size: uint64(len(data))}, nil
}

func (b *fakeBackend) HasNativeTransactionalCopy() bool { return false }
func (b *fakeBackend) SupportsRecycleBin() bool         { return false }
func (b *fakeBackend) CreateRecycleSession(context.Context) (afs.RecycleSession, error) {
	return nil, afs.ErrRecycleUnsupported
}
func (b *fakeBackend) FreeDiskSpace(context.Context, afs.Path) (uint64, error) { return 0, nil }

func newExecutor(left, right *fakeBackend) *Executor {
	return &Executor{
		Left: left, Right: right,
		LeftDevice: "left", RightDevice: "right",
		LeftDeletion:  deletion.Permanent{},
		RightDeletion: deletion.Permanent{},
	}
}

func TestExecutorCreateCopiesFileFromOppositeSide(t *testing.T) {
	left, right := newFakeBackend(), newFakeBackend()
	left.files["dir/a.txt"] = []byte("payload")
	left.folders["dir"] = true

	e := newExecutor(left, right)
	p := &plan.Plan{PassTwo: []plan.Operation{{
		Kind: plan.Create, Side: plan.Right, Path: "dir/a.txt", Size: 7,
	}}}

	if err := e.Run(context.Background(), p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(right.files["dir/a.txt"]) != "payload" {
		t.Fatalf("expected file copied to right side, got %v", right.files)
	}
	if !right.folders["dir"] {
		t.Fatalf("expected parent folder auto-created on right side")
	}
}

func TestExecutorOverwriteRoutesOldTargetThroughDeletionHandler(t *testing.T) {
	left, right := newFakeBackend(), newFakeBackend()
	left.files["a.txt"] = []byte("new")
	right.files["a.txt"] = []byte("old")

	e := newExecutor(left, right)
	p := &plan.Plan{PassTwo: []plan.Operation{{
		Kind: plan.Overwrite, Side: plan.Right, Path: "a.txt", Size: 3,
	}}}

	if err := e.Run(context.Background(), p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(right.files["a.txt"]) != "new" {
		t.Fatalf("expected right side overwritten with new content, got %q", right.files["a.txt"])
	}
}

func TestExecutorDeleteRemovesFile(t *testing.T) {
	left, right := newFakeBackend(), newFakeBackend()
	right.files["stale.txt"] = []byte("x")

	e := newExecutor(left, right)
	p := &plan.Plan{PassOne: []plan.Operation{{
		Kind: plan.Delete, Side: plan.Right, Path: "stale.txt",
	}}}

	if err := e.Run(context.Background(), p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := right.files["stale.txt"]; ok {
		t.Fatalf("expected stale.txt removed")
	}
}

func TestExecutorMoveFallsBackToCopyDeleteOnCrossDevice(t *testing.T) {
	left, right := newFakeBackend(), newFakeBackend()
	right.files["old.txt"] = []byte("payload")
	right.renameErr = afs.ErrCrossDevice

	e := newExecutor(left, right)
	p := &plan.Plan{PassTwo: []plan.Operation{{
		Kind: plan.Move, Side: plan.Right, Path: "new.txt",
		SourceName: "old.txt", TargetName: "new.txt",
	}}}

	if err := e.Run(context.Background(), p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := right.files["old.txt"]; ok {
		t.Fatalf("expected old.txt removed after fallback")
	}
	if string(right.files["new.txt"]) != "payload" {
		t.Fatalf("expected new.txt to carry the payload, got %v", right.files)
	}
}

func TestExecutorErrorCallbackRetriesThenIgnores(t *testing.T) {
	left, right := newFakeBackend(), newFakeBackend()
	left.files["a.txt"] = []byte("x")

	e := newExecutor(left, right)
	attempts := 0
	e.ErrorCallback = func(plan.Operation, error) ErrorAction {
		attempts++
		if attempts < 2 {
			return ActionRetry
		}
		return ActionIgnore
	}

	// Force the first attempt to fail by pre-creating a folder at the
	// target name, which the create pre-delete hook refuses to clobber.
	right.folders["a.txt"] = true

	p := &plan.Plan{PassTwo: []plan.Operation{{
		Kind: plan.Create, Side: plan.Right, Path: "a.txt", Size: 1,
	}}}

	if err := e.Run(context.Background(), p); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if attempts == 0 {
		t.Fatalf("expected ErrorCallback to be consulted at least once")
	}
}
