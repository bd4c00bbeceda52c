package scan

import (
	"testing"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/compare"
	"github.com/foldersync/foldersync/internal/tree"
)

func newSettings() *compare.Settings {
	return &compare.Settings{Variant: compare.VariantTimeSize, ToleranceSeconds: 2}
}

func TestMergeCategorizesEqualFile(t *testing.T) {
	left, right := NewContainer(), NewContainer()
	left.Files["a.txt"] = ItemRecord{Attrs: afs.FileAttributes{Size: 5, ModTime: 100}}
	right.Files["a.txt"] = ItemRecord{Attrs: afs.FileAttributes{Size: 5, ModTime: 100}}

	tr := tree.New()
	Merge(tr, tr.Root, left, right, newSettings(), nil)

	node := tr.Node(tr.Node(tr.Root).Children["a.txt"])
	if node.Category != tree.CategoryEqual {
		t.Fatalf("expected equal, got %v", node.Category)
	}
}

func TestMergeLeftOnlyFile(t *testing.T) {
	left, right := NewContainer(), NewContainer()
	left.Files["only.txt"] = ItemRecord{Attrs: afs.FileAttributes{Size: 5, ModTime: 100}}

	tr := tree.New()
	Merge(tr, tr.Root, left, right, newSettings(), nil)

	node := tr.Node(tr.Node(tr.Root).Children["only.txt"])
	if node.Category != tree.CategoryLeftOnly {
		t.Fatalf("expected left-only, got %v", node.Category)
	}
}

func TestMergeFlagsCaseOnlyDifference(t *testing.T) {
	left, right := NewContainer(), NewContainer()
	left.Files["Report.txt"] = ItemRecord{Attrs: afs.FileAttributes{Size: 5, ModTime: 100}}
	right.Files["report.txt"] = ItemRecord{Attrs: afs.FileAttributes{Size: 5, ModTime: 100}}

	tr := tree.New()
	Merge(tr, tr.Root, left, right, newSettings(), nil)

	root := tr.Node(tr.Root)
	var node *tree.Node
	for _, id := range root.Children {
		node = tr.Node(id)
	}
	if node == nil {
		t.Fatalf("expected exactly one merged node")
	}
	if node.ConflictReason != "differ in attributes only" {
		t.Fatalf("expected case-only-difference flag, got %q", node.ConflictReason)
	}
}

func TestMergeRecursesIntoSubFolders(t *testing.T) {
	leftSub := NewContainer()
	leftSub.Files["nested.txt"] = ItemRecord{Attrs: afs.FileAttributes{Size: 1, ModTime: 1}}
	left := NewContainer()
	left.SubFolders["sub"] = leftSub
	right := NewContainer()

	tr := tree.New()
	Merge(tr, tr.Root, left, right, newSettings(), nil)

	subID := tr.Node(tr.Root).Children["sub"]
	sub := tr.Node(subID)
	if sub.Category != tree.CategoryLeftOnly {
		t.Fatalf("expected sub folder left-only, got %v", sub.Category)
	}
	nestedID := sub.Children["nested.txt"]
	if nestedID == tree.NoNode {
		t.Fatalf("expected nested.txt merged under sub")
	}
}
