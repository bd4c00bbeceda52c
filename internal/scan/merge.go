package scan

import (
	"strings"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/compare"
	"github.com/foldersync/foldersync/internal/pathutil"
	"github.com/foldersync/foldersync/internal/tree"
)

// Merge pairs two single-side Containers into t beneath parent, assigning
// each resulting node's Category via internal/compare and its Active flag
// via the soft (size/time) filter, applied here rather than during Scan
// so a soft filter matching on only one side never creates a spurious
// left/right asymmetry (spec.md §4.2 "Filtering").
func Merge(t *tree.Tree, parent tree.NodeID, left, right *Container, settings *compare.Settings, soft *pathutil.SoftFilter) {
	type slot struct {
		kind                   tree.Kind
		leftName, rightName    string
		leftEntry, rightEntry  *ItemRecord
		leftFolder, rightFolder *Container
	}
	slots := make(map[string]*slot)

	index := func(names map[string]ItemRecord, kind tree.Kind, isLeft bool) {
		for name, rec := range names {
			rec := rec
			key := matchKey(name)
			s, ok := slots[key]
			if !ok {
				s = &slot{kind: kind}
				slots[key] = s
			}
			if isLeft {
				s.leftName, s.leftEntry = name, &rec
			} else {
				s.rightName, s.rightEntry = name, &rec
			}
		}
	}
	indexFolders := func(names map[string]*Container, isLeft bool) {
		for name, sub := range names {
			key := matchKey(name)
			s, ok := slots[key]
			if !ok {
				s = &slot{kind: tree.KindFolder}
				slots[key] = s
			}
			if isLeft {
				s.leftName, s.leftFolder = name, sub
			} else {
				s.rightName, s.rightFolder = name, sub
			}
		}
	}

	index(left.Files, tree.KindFile, true)
	index(right.Files, tree.KindFile, false)
	index(left.Symlinks, tree.KindSymlink, true)
	index(right.Symlinks, tree.KindSymlink, false)
	indexFolders(left.SubFolders, true)
	indexFolders(right.SubFolders, false)

	for _, s := range slots {
		name := s.leftName
		if name == "" {
			name = s.rightName
		}
		id := t.NewChild(parent, name, s.kind)
		node := t.Node(id)
		node.LeftName, node.RightName = s.leftName, s.rightName
		node.Active = true

		switch s.kind {
		case tree.KindFolder:
			node.Category = compare.CategorizeFolder(s.leftFolder != nil, s.rightFolder != nil)
			if s.leftFolder != nil && s.rightFolder != nil {
				Merge(t, id, s.leftFolder, s.rightFolder, settings, soft)
			} else if s.leftFolder != nil {
				Merge(t, id, s.leftFolder, NewContainer(), settings, soft)
			} else if s.rightFolder != nil {
				Merge(t, id, NewContainer(), s.rightFolder, settings, soft)
			}

		case tree.KindSymlink:
			mergeSymlink(node, settings, s.leftEntry, s.rightEntry)

		default: // tree.KindFile
			mergeFile(node, settings, soft, s.leftEntry, s.rightEntry)
		}

		if pathutil.DisplayOnlyCaseDiffers(s.leftName, s.rightName) {
			node.ConflictReason = "differ in attributes only"
		}
	}
}

func mergeFile(node *tree.Node, settings *compare.Settings, soft *pathutil.SoftFilter, left, right *ItemRecord) {
	if left != nil {
		node.LeftAttrs = toTreeAttrs(left.Attrs)
	}
	if right != nil {
		node.RightAttrs = toTreeAttrs(right.Attrs)
	}

	switch {
	case left != nil && right != nil:
		category, reason, _ := compare.CategorizeFile(settings, node.LeftAttrs, node.RightAttrs, node.LeftName, node.RightName)
		node.Category, node.ConflictReason = category, reason
	case left != nil:
		node.Category = tree.CategoryLeftOnly
	case right != nil:
		node.Category = tree.CategoryRightOnly
	}

	if left != nil && !soft.Allows(left.Attrs.Size, left.Attrs.ModTime) {
		node.Active = false
	}
	if right != nil && !soft.Allows(right.Attrs.Size, right.Attrs.ModTime) {
		node.Active = false
	}
}

func mergeSymlink(node *tree.Node, settings *compare.Settings, left, right *ItemRecord) {
	if left != nil {
		node.LeftAttrs = toTreeAttrs(left.Attrs)
		node.LeftSymlinkTarget = left.SymlinkTarget
	}
	if right != nil {
		node.RightAttrs = toTreeAttrs(right.Attrs)
		node.RightSymlinkTarget = right.SymlinkTarget
	}

	switch {
	case left != nil && right != nil:
		node.Category = compare.CategorizeSymlink(settings, node.LeftSymlinkTarget, node.RightSymlinkTarget, node.LeftAttrs, node.RightAttrs)
	case left != nil:
		node.Category = tree.CategoryLeftOnly
	case right != nil:
		node.Category = tree.CategoryRightOnly
	}
}

func toTreeAttrs(a afs.FileAttributes) tree.Attributes {
	return tree.Attributes{ModTime: a.ModTime, Size: a.Size, Fingerprint: uint64(a.Fingerprint)}
}

// matchKey is the case-insensitive, Unicode-normalized key used to pair
// the same logical item across two sides even when it differs in case
// (spec.md §3 invariant (b), "differ in attributes only").
func matchKey(name string) string {
	return strings.ToLower(pathutil.NormalizedKey(name))
}
