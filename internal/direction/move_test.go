package direction

import (
	"testing"

	"github.com/foldersync/foldersync/internal/compare"
	"github.com/foldersync/foldersync/internal/lssdb"
	"github.com/foldersync/foldersync/internal/tree"
)

func TestDetectMovesPairsRenamedFile(t *testing.T) {
	tr := tree.New()

	// "old.txt" still exists on the right (left renamed it away).
	oldID := tr.NewChild(tr.Root, "old.txt", tree.KindFile)
	oldNode := tr.Node(oldID)
	oldNode.RightName = "old.txt"
	oldNode.RightAttrs = tree.Attributes{ModTime: 1000, Size: 42, Fingerprint: 99}
	oldNode.Category = tree.CategoryRightOnly
	oldNode.Active = true

	// "new.txt" exists only on the left: the renamed copy.
	newID := tr.NewChild(tr.Root, "new.txt", tree.KindFile)
	newNode := tr.Node(newID)
	newNode.LeftName = "new.txt"
	newNode.LeftAttrs = tree.Attributes{ModTime: 1000, Size: 42, Fingerprint: 77}
	newNode.Category = tree.CategoryLeftOnly
	newNode.Active = true

	synced := lssdb.NewFolder()
	synced.Files["old.txt"] = lssdb.FileEntry{
		Variant: compare.VariantTimeSize,
		Size:    42,
		Left:    lssdb.Descriptor{ModTime: 1000, Fingerprint: 77},
		Right:   lssdb.Descriptor{ModTime: 1000, Fingerprint: 99},
	}

	settings := newSettings()
	DetectMoves(tr, synced, settings)

	if oldNode.MoveRef != newID {
		t.Fatalf("expected old.txt's MoveRef to point at new.txt, got %v", oldNode.MoveRef)
	}
	if newNode.MoveRef != oldID {
		t.Fatalf("expected new.txt's MoveRef to point at old.txt, got %v", newNode.MoveRef)
	}
}

func TestDetectMovesSkipsWhenSizeMismatch(t *testing.T) {
	tr := tree.New()

	oldID := tr.NewChild(tr.Root, "old.txt", tree.KindFile)
	oldNode := tr.Node(oldID)
	oldNode.RightName = "old.txt"
	oldNode.RightAttrs = tree.Attributes{ModTime: 1000, Size: 999}
	oldNode.Category = tree.CategoryRightOnly
	oldNode.Active = true

	newID := tr.NewChild(tr.Root, "new.txt", tree.KindFile)
	newNode := tr.Node(newID)
	newNode.LeftName = "new.txt"
	newNode.LeftAttrs = tree.Attributes{ModTime: 1000, Size: 42, Fingerprint: 77}
	newNode.Category = tree.CategoryLeftOnly
	newNode.Active = true

	synced := lssdb.NewFolder()
	synced.Files["old.txt"] = lssdb.FileEntry{
		Variant: compare.VariantTimeSize,
		Size:    42,
		Left:    lssdb.Descriptor{ModTime: 1000, Fingerprint: 77},
		Right:   lssdb.Descriptor{ModTime: 1000},
	}

	DetectMoves(tr, synced, newSettings())

	if oldNode.MoveRef != tree.NoNode || newNode.MoveRef != tree.NoNode {
		t.Fatal("expected no move pairing when the right side's current size no longer matches the recorded entry")
	}
}

func TestIndexByFingerprintPoisonsDuplicates(t *testing.T) {
	tr := tree.New()
	a := tr.NewChild(tr.Root, "a.txt", tree.KindFile)
	tr.Node(a).LeftAttrs.Fingerprint = 5
	b := tr.NewChild(tr.Root, "b.txt", tree.KindFile)
	tr.Node(b).LeftAttrs.Fingerprint = 5

	nodes := []nodeAtPath{{"a.txt", tr.Node(a)}, {"b.txt", tr.Node(b)}}
	index := indexByFingerprint(nodes, func(n *tree.Node) uint64 { return n.LeftAttrs.Fingerprint })

	if _, ok := index[5]; ok {
		t.Fatal("expected a fingerprint shared by two nodes to be poisoned (absent), not resolved to either node")
	}
}
