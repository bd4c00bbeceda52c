package plan

import (
	"testing"

	"github.com/foldersync/foldersync/internal/tree"
)

func TestBuildCreateGoesToPassTwo(t *testing.T) {
	tr := tree.New()
	id := tr.NewChild(tr.Root, "new.txt", tree.KindFile)
	node := tr.Node(id)
	node.LeftName = "new.txt"
	node.LeftAttrs.Size = 100
	node.Category = tree.CategoryLeftOnly
	node.Direction = tree.DirectionRight
	node.Active = true

	p := Build(tr)

	if len(p.PassTwo) != 1 || p.PassTwo[0].Kind != Create || p.PassTwo[0].Side != Right {
		t.Fatalf("expected a single right-side create in pass two, got %+v / %+v", p.PassTwo, p.PassOne)
	}
	if p.Statistics.RightCreate != 1 {
		t.Fatalf("expected RightCreate=1, got %d", p.Statistics.RightCreate)
	}
}

func TestBuildDeleteGoesToPassOne(t *testing.T) {
	tr := tree.New()
	id := tr.NewChild(tr.Root, "stale.txt", tree.KindFile)
	node := tr.Node(id)
	node.RightName = "stale.txt"
	node.RightAttrs.Size = 5
	node.Category = tree.CategoryRightOnly
	node.Direction = tree.DirectionRight
	node.Active = true

	p := Build(tr)

	if len(p.PassOne) != 1 || p.PassOne[0].Kind != Delete || p.PassOne[0].Side != Right {
		t.Fatalf("expected a single right-side delete in pass one, got %+v", p.PassOne)
	}
	if p.Statistics.RightDelete != 1 {
		t.Fatalf("expected RightDelete=1, got %d", p.Statistics.RightDelete)
	}
}

func TestBuildShrinkingOverwriteGoesToPassOne(t *testing.T) {
	tr := tree.New()
	id := tr.NewChild(tr.Root, "big.bin", tree.KindFile)
	node := tr.Node(id)
	node.LeftName, node.RightName = "big.bin", "big.bin"
	node.LeftAttrs.Size = 10
	node.RightAttrs.Size = 1000
	node.Category = tree.CategoryLeftNewer
	node.Direction = tree.DirectionRight
	node.Active = true

	p := Build(tr)

	if len(p.PassOne) != 1 || p.PassOne[0].Kind != Overwrite {
		t.Fatalf("expected shrinking overwrite in pass one, got pass one=%+v pass two=%+v", p.PassOne, p.PassTwo)
	}
}

func TestBuildGrowingOverwriteGoesToPassTwo(t *testing.T) {
	tr := tree.New()
	id := tr.NewChild(tr.Root, "small.bin", tree.KindFile)
	node := tr.Node(id)
	node.LeftName, node.RightName = "small.bin", "small.bin"
	node.LeftAttrs.Size = 1000
	node.RightAttrs.Size = 10
	node.Category = tree.CategoryLeftNewer
	node.Direction = tree.DirectionRight
	node.Active = true

	p := Build(tr)

	if len(p.PassTwo) != 1 || p.PassTwo[0].Kind != Overwrite {
		t.Fatalf("expected growing overwrite in pass two, got pass one=%+v pass two=%+v", p.PassOne, p.PassTwo)
	}
}

func TestBuildConflictIsPreviewedNotScheduled(t *testing.T) {
	tr := tree.New()
	id := tr.NewChild(tr.Root, "clash.txt", tree.KindFile)
	node := tr.Node(id)
	node.LeftName, node.RightName = "clash.txt", "clash.txt"
	node.Category = tree.CategoryConflict
	node.ConflictReason = "both sides changed"
	node.Active = true

	p := Build(tr)

	if len(p.PassOne) != 0 || len(p.PassTwo) != 0 || len(p.ZeroPass) != 0 {
		t.Fatalf("expected a conflict to schedule no operations, got %+v %+v %+v", p.ZeroPass, p.PassOne, p.PassTwo)
	}
	if p.Statistics.ConflictCount != 1 || len(p.Statistics.ConflictPaths) != 1 {
		t.Fatalf("expected conflict to be previewed, got count=%d paths=%v", p.Statistics.ConflictCount, p.Statistics.ConflictPaths)
	}
}

func TestBuildMoveWithoutClashEmitsSingleMoveOperation(t *testing.T) {
	tr := tree.New()

	oldID := tr.NewChild(tr.Root, "old.txt", tree.KindFile)
	oldNode := tr.Node(oldID)
	oldNode.RightName = "old.txt"
	oldNode.RightAttrs.Size = 42
	oldNode.Category = tree.CategoryRightOnly
	oldNode.Direction = tree.DirectionRight
	oldNode.Active = true

	newID := tr.NewChild(tr.Root, "new.txt", tree.KindFile)
	newNode := tr.Node(newID)
	newNode.LeftName = "new.txt"
	newNode.LeftAttrs.Size = 42
	newNode.Category = tree.CategoryLeftOnly
	newNode.Direction = tree.DirectionRight
	newNode.Active = true

	oldNode.MoveRef = newID
	newNode.MoveRef = oldID

	p := Build(tr)

	if len(p.ZeroPass) != 0 {
		t.Fatalf("expected no two-step rename when destination is free, got %+v", p.ZeroPass)
	}
	if len(p.PassTwo) != 1 || p.PassTwo[0].Kind != Move {
		t.Fatalf("expected a single move operation in pass two, got %+v", p.PassTwo)
	}
	op := p.PassTwo[0]
	if op.Side != Right || op.SourceName != "old.txt" || op.TargetName != "new.txt" {
		t.Fatalf("unexpected move operation shape: %+v", op)
	}
}
