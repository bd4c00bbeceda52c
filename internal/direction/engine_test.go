package direction

import (
	"testing"

	"github.com/foldersync/foldersync/internal/compare"
	"github.com/foldersync/foldersync/internal/lssdb"
	"github.com/foldersync/foldersync/internal/tree"
)

func newSettings() *compare.Settings {
	return &compare.Settings{Variant: compare.VariantTimeSize, ToleranceSeconds: 2}
}

func TestEngineOneWayMirror(t *testing.T) {
	tr := tree.New()
	leftOnly := tr.NewChild(tr.Root, "new.txt", tree.KindFile)
	tr.Node(leftOnly).LeftName = "new.txt"
	tr.Node(leftOnly).Category = tree.CategoryLeftOnly
	tr.Node(leftOnly).Active = true

	rightOnly := tr.NewChild(tr.Root, "stale.txt", tree.KindFile)
	tr.Node(rightOnly).RightName = "stale.txt"
	tr.Node(rightOnly).Category = tree.CategoryRightOnly
	tr.Node(rightOnly).Active = true

	e := &Engine{Mode: ModeOneWay, Set: Mirror(), Compare: newSettings()}
	e.Run(tr)

	if tr.Node(leftOnly).Direction != tree.DirectionRight {
		t.Fatalf("expected left-only to propagate right under mirror, got %v", tr.Node(leftOnly).Direction)
	}
	if tr.Node(rightOnly).Direction != tree.DirectionRight {
		t.Fatalf("expected right-only to be deleted (DirectionRight) under mirror, got %v", tr.Node(rightOnly).Direction)
	}
}

func TestEngineTwoWayPropagatesSingleSidedChange(t *testing.T) {
	tr := tree.New()
	id := tr.NewChild(tr.Root, "doc.txt", tree.KindFile)
	node := tr.Node(id)
	node.LeftName, node.RightName = "doc.txt", "doc.txt"
	node.LeftAttrs = tree.Attributes{ModTime: 5000, Size: 10}
	node.RightAttrs = tree.Attributes{ModTime: 1000, Size: 10}
	node.Category = tree.CategoryLeftNewer
	node.Active = true

	synced := lssdb.NewFolder()
	synced.Files["doc.txt"] = lssdb.FileEntry{
		Variant: compare.VariantTimeSize,
		Size:    10,
		Left:    lssdb.Descriptor{ModTime: 1000},
		Right:   lssdb.Descriptor{ModTime: 1000},
	}

	e := &Engine{Mode: ModeTwoWay, Compare: newSettings(), LastSynced: synced}
	e.Run(tr)

	if node.Direction != tree.DirectionRight {
		t.Fatalf("expected left's change to propagate right, got direction %v category %v", node.Direction, node.Category)
	}
}

func TestEngineTwoWayBothSidesChangedIsConflict(t *testing.T) {
	tr := tree.New()
	id := tr.NewChild(tr.Root, "doc.txt", tree.KindFile)
	node := tr.Node(id)
	node.LeftName, node.RightName = "doc.txt", "doc.txt"
	node.LeftAttrs = tree.Attributes{ModTime: 5000, Size: 10}
	node.RightAttrs = tree.Attributes{ModTime: 6000, Size: 20}
	node.Category = tree.CategoryDifferent
	node.Active = true

	synced := lssdb.NewFolder()
	synced.Files["doc.txt"] = lssdb.FileEntry{
		Variant: compare.VariantTimeSize,
		Size:    10,
		Left:    lssdb.Descriptor{ModTime: 1000},
		Right:   lssdb.Descriptor{ModTime: 1000},
	}

	e := &Engine{Mode: ModeTwoWay, Compare: newSettings(), LastSynced: synced}
	e.Run(tr)

	if node.Category != tree.CategoryConflict || node.Direction != tree.DirectionNone {
		t.Fatalf("expected conflict with no direction, got category %v direction %v", node.Category, node.Direction)
	}
}

func TestEngineTwoWayNoHistoryFallsBackToNewerWins(t *testing.T) {
	tr := tree.New()
	id := tr.NewChild(tr.Root, "doc.txt", tree.KindFile)
	node := tr.Node(id)
	node.LeftName, node.RightName = "doc.txt", "doc.txt"
	node.LeftAttrs = tree.Attributes{ModTime: 9000, Size: 10}
	node.RightAttrs = tree.Attributes{ModTime: 1000, Size: 10}
	node.Category = tree.CategoryLeftNewer
	node.Active = true

	e := &Engine{Mode: ModeTwoWay, Compare: newSettings(), LastSynced: lssdb.NewFolder()}
	e.Run(tr)

	if node.Direction != tree.DirectionRight {
		t.Fatalf("expected default two-way newer-wins to propagate right, got %v", node.Direction)
	}
}

func TestEngineTempExtensionCleanup(t *testing.T) {
	tr := tree.New()
	id := tr.NewChild(tr.Root, "partial.ffs_tmp", tree.KindFile)
	node := tr.Node(id)
	node.LeftName = "partial.ffs_tmp"
	node.Category = tree.CategoryLeftOnly
	node.Active = true

	e := &Engine{Mode: ModeTwoWay, Compare: newSettings(), LastSynced: lssdb.NewFolder()}
	e.Run(tr)

	if node.Direction != tree.DirectionLeft {
		t.Fatalf("expected reserved temp extension to be scheduled for left deletion, got %v", node.Direction)
	}
}

func TestEngineSkipsInactiveAndEqualNodes(t *testing.T) {
	tr := tree.New()
	id := tr.NewChild(tr.Root, "skip.txt", tree.KindFile)
	node := tr.Node(id)
	node.Category = tree.CategoryLeftOnly
	node.Active = false

	equalID := tr.NewChild(tr.Root, "same.txt", tree.KindFile)
	equal := tr.Node(equalID)
	equal.LeftName, equal.RightName = "same.txt", "same.txt"
	equal.Category = tree.CategoryEqual
	equal.Active = true

	e := &Engine{Mode: ModeOneWay, Set: Mirror(), Compare: newSettings()}
	e.Run(tr)

	if node.Direction != tree.DirectionNone {
		t.Fatalf("expected inactive node to be left untouched, got %v", node.Direction)
	}
	if equal.Direction != tree.DirectionNone {
		t.Fatalf("expected equal node to be left untouched, got %v", equal.Direction)
	}
}
