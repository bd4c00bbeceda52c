package scan

import (
	"context"
	"io"
	"sort"
	"testing"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/pathutil"
)

// treeBackend is a minimal read-only afs.Backend backed by a static
// in-memory tree, sufficient to drive the scanner.
type treeNode struct {
	itemType afs.ItemType
	attrs    afs.FileAttributes
	children map[string]*treeNode
	target   string
}

type treeBackend struct {
	root *treeNode
}

func (b *treeBackend) find(p afs.Path) *treeNode {
	n := b.root
	for _, seg := range p.Segments {
		if n.children == nil {
			return nil
		}
		n = n.children[seg]
		if n == nil {
			return nil
		}
	}
	return n
}

func (b *treeBackend) Connect(context.Context) error { return nil }

func (b *treeBackend) GetItemType(_ context.Context, p afs.Path) (afs.ItemType, afs.FileAttributes, error) {
	n := b.find(p)
	if n == nil {
		return 0, afs.FileAttributes{}, afs.ErrNotExist
	}
	return n.itemType, n.attrs, nil
}

func (b *treeBackend) ItemExists(ctx context.Context, p afs.Path) (bool, error) {
	return b.find(p) != nil, nil
}

func (b *treeBackend) ReadStream(_ context.Context, p afs.Path) (io.ReadCloser, error) {
	n := b.find(p)
	if n == nil {
		return nil, afs.ErrNotExist
	}
	return io.NopCloser(stringsReader(n.target)), nil
}

type stringsReaderImpl struct {
	s   string
	pos int
}

func stringsReader(s string) *stringsReaderImpl { return &stringsReaderImpl{s: s} }

func (r *stringsReaderImpl) Read(p []byte) (int, error) {
	if r.pos >= len(r.s) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.pos:])
	r.pos += n
	return n, nil
}

func (b *treeBackend) WriteStream(context.Context, afs.Path) (io.WriteCloser, error) { panic("unused") }
func (b *treeBackend) CreateFolderPlain(context.Context, afs.Path) error              { panic("unused") }
func (b *treeBackend) RenameItem(context.Context, afs.Path, afs.Path) error           { panic("unused") }
func (b *treeBackend) RemoveFilePlain(context.Context, afs.Path) error                { panic("unused") }
func (b *treeBackend) RemoveFolderRecursion(context.Context, afs.Path, func(afs.Path, afs.ItemType)) error {
	panic("unused")
}
func (b *treeBackend) CopySymlink(context.Context, afs.Path, afs.Path) error { panic("unused") }

func (b *treeBackend) TraverseFolder(_ context.Context, p afs.Path, callback afs.TraverseCallback) error {
	n := b.find(p)
	if n == nil {
		return afs.ErrNotExist
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child := n.children[name]
		if err := callback(name, child.itemType, child.attrs); err != nil {
			return err
		}
	}
	return nil
}

func (b *treeBackend) CopyFileTransactional(context.Context, afs.Path, afs.FileAttributes, afs.Path, afs.CopyOptions) (afs.CopyResult, error) {
	panic("unused")
}
func (b *treeBackend) HasNativeTransactionalCopy() bool { return false }
func (b *treeBackend) SupportsRecycleBin() bool         { return false }
func (b *treeBackend) CreateRecycleSession(context.Context) (afs.RecycleSession, error) {
	return nil, afs.ErrRecycleUnsupported
}
func (b *treeBackend) FreeDiskSpace(context.Context, afs.Path) (uint64, error) { return 0, nil }

func folder(children map[string]*treeNode) *treeNode {
	return &treeNode{itemType: afs.ItemTypeFolder, children: children}
}

func file(size uint64, modTime int64) *treeNode {
	return &treeNode{itemType: afs.ItemTypeFile, attrs: afs.FileAttributes{Size: size, ModTime: modTime}}
}

func TestScanBuildsContainerTree(t *testing.T) {
	backend := &treeBackend{root: folder(map[string]*treeNode{
		"a.txt": file(10, 100),
		"sub":   folder(map[string]*treeNode{"b.txt": file(20, 200)}),
	})}

	container, failed, err := Scan(context.Background(), backend, Options{Root: afs.Path{Device: "left"}})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(failed) != 0 {
		t.Fatalf("expected no failed reads, got %v", failed)
	}
	if _, ok := container.Files["a.txt"]; !ok {
		t.Fatalf("expected a.txt in container, got %+v", container.Files)
	}
	sub, ok := container.SubFolders["sub"]
	if !ok {
		t.Fatalf("expected sub folder, got %+v", container.SubFolders)
	}
	if _, ok := sub.Files["b.txt"]; !ok {
		t.Fatalf("expected b.txt nested under sub, got %+v", sub.Files)
	}
}

func TestScanAppliesHardFilterDuringTraversal(t *testing.T) {
	backend := &treeBackend{root: folder(map[string]*treeNode{
		"keep.txt":   file(1, 1),
		"ignore.tmp": file(1, 1),
	})}
	filter := pathutil.NewFilter([]string{"!*.tmp"})

	container, _, err := Scan(context.Background(), backend, Options{Root: afs.Path{Device: "left"}, Filter: filter})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if _, ok := container.Files["ignore.tmp"]; ok {
		t.Fatalf("expected ignore.tmp excluded, got %+v", container.Files)
	}
	if _, ok := container.Files["keep.txt"]; !ok {
		t.Fatalf("expected keep.txt present, got %+v", container.Files)
	}
}
