package direction

import (
	"github.com/foldersync/foldersync/internal/compare"
	"github.com/foldersync/foldersync/internal/lssdb"
	"github.com/foldersync/foldersync/internal/tree"
)

// moveDetectionTolerance is the fixed 2-second modification-time
// tolerance move detection uses for matching against the LSSDB,
// independent of the user's configured compare tolerance and ignored
// time shifts (spec.md §4.4 step 2; DESIGN.md Open Question (b)).
const moveDetectionTolerance int64 = 2

type nodeAtPath struct {
	path string
	node *tree.Node
}

// DetectMoves finds move/rename pairs between left-only and right-only
// file nodes by consulting lastSynced, and sets mutual MoveRef links on
// the pairs it finds (spec.md §4.4 "Move detection"). It is a no-op if
// either side has no one-sided file nodes at all.
func DetectMoves(t *tree.Tree, lastSynced lssdb.Folder, settings *compare.Settings) {
	var leftOnly, rightOnly []nodeAtPath
	t.Walk(func(path string, node *tree.Node) {
		if node.Kind != tree.KindFile || !node.Active {
			return
		}
		switch {
		case node.LeftOnly():
			leftOnly = append(leftOnly, nodeAtPath{path, node})
		case node.RightOnly():
			rightOnly = append(rightOnly, nodeAtPath{path, node})
		}
	})
	if len(leftOnly) == 0 || len(rightOnly) == 0 {
		return
	}

	leftByPath := indexByPath(leftOnly)
	rightByPath := indexByPath(rightOnly)
	leftByFingerprint := indexByFingerprint(leftOnly, func(n *tree.Node) uint64 { return n.LeftAttrs.Fingerprint })
	rightByFingerprint := indexByFingerprint(rightOnly, func(n *tree.Node) uint64 { return n.RightAttrs.Fingerprint })

	walkEntries(lastSynced, "", func(entryPath string, entry lssdb.FileEntry) {
		if !entryInSync(entry, settings) {
			return
		}

		leftNode := leftByPath[entryPath]
		if leftNode == nil && entry.Left.Fingerprint != 0 {
			leftNode = leftByFingerprint[entry.Left.Fingerprint]
		}
		rightNode := rightByPath[entryPath]
		if rightNode == nil && entry.Right.Fingerprint != 0 {
			rightNode = rightByFingerprint[entry.Right.Fingerprint]
		}

		if leftNode == nil || rightNode == nil {
			return
		}
		if leftNode.MoveRef != tree.NoNode || rightNode.MoveRef != tree.NoNode {
			return
		}
		if !matchesEntry(leftNode.LeftAttrs, entry.Size, entry.Left) || !matchesEntry(rightNode.RightAttrs, entry.Size, entry.Right) {
			return
		}

		leftNode.MoveRef = rightNode.ID()
		rightNode.MoveRef = leftNode.ID()
	})
}

func matchesEntry(current tree.Attributes, size uint64, recorded lssdb.Descriptor) bool {
	if current.Size != size {
		return false
	}
	delta := current.ModTime - recorded.ModTime
	if delta < 0 {
		delta = -delta
	}
	return delta <= moveDetectionTolerance
}

func indexByPath(nodes []nodeAtPath) map[string]*tree.Node {
	index := make(map[string]*tree.Node, len(nodes))
	for _, np := range nodes {
		index[np.path] = np.node
	}
	return index
}

// indexByFingerprint builds a fingerprint -> node lookup, collapsing any
// fingerprint shared by more than one node to a poisoned (absent) entry
// rather than risk pairing an item with the wrong duplicate (spec.md
// §4.4 step 1 "duplicates collapse to a poisoned null entry").
func indexByFingerprint(nodes []nodeAtPath, fingerprintOf func(*tree.Node) uint64) map[uint64]*tree.Node {
	index := make(map[uint64]*tree.Node, len(nodes))
	poisoned := make(map[uint64]bool)
	for _, np := range nodes {
		fp := fingerprintOf(np.node)
		if fp == 0 || poisoned[fp] {
			continue
		}
		if _, exists := index[fp]; exists {
			delete(index, fp)
			poisoned[fp] = true
			continue
		}
		index[fp] = np.node
	}
	return index
}

// walkEntries visits every file entry recorded in f, invoking visit with
// its full slash-separated path relative to the root f was called with.
func walkEntries(f lssdb.Folder, prefix string, visit func(path string, entry lssdb.FileEntry)) {
	for name, entry := range f.Files {
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}
		visit(path, entry)
	}
	for name, sub := range f.SubFolders {
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}
		walkEntries(sub.Folder, path, visit)
	}
}
