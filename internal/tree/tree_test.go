package tree

import "testing"

func TestNewChildAndWalk(t *testing.T) {
	tr := New()
	root := tr.Node(tr.Root)
	fileID := tr.NewChild(tr.Root, "a.txt", KindFile)
	tr.Node(fileID).LeftName = "a.txt"
	tr.Node(fileID).RightName = "a.txt"
	tr.Node(fileID).Category = CategoryEqual

	if root.Children["a.txt"] != fileID {
		t.Fatalf("expected root to reference child by name")
	}

	var visited []string
	tr.Walk(func(path string, node *Node) {
		visited = append(visited, path)
	})
	if len(visited) != 1 || visited[0] != "a.txt" {
		t.Fatalf("expected walk to visit [a.txt], got %v", visited)
	}
}

func TestMutualMoveRef(t *testing.T) {
	tr := New()
	del := tr.NewChild(tr.Root, "old.bin", KindFile)
	create := tr.NewChild(tr.Root, "new.bin", KindFile)

	tr.Node(del).LeftName = "old.bin"
	tr.Node(create).RightName = "new.bin"

	tr.Node(del).MoveRef = create
	tr.Node(create).MoveRef = del

	if tr.Node(del).MoveRef != create || tr.Node(create).MoveRef != del {
		t.Fatal("move reference must be mutual")
	}
	if !tr.Node(del).LeftOnly() || !tr.Node(create).RightOnly() {
		t.Fatal("move pair must have exactly one side each")
	}
}

func TestNodeIDZeroIsNoNode(t *testing.T) {
	if NoNode != 0 {
		t.Fatal("NoNode must be the zero value so an unset MoveRef is detectable")
	}
}
