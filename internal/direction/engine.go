package direction

import (
	"github.com/foldersync/foldersync/internal/compare"
	"github.com/foldersync/foldersync/internal/lssdb"
	"github.com/foldersync/foldersync/internal/pathutil"
	"github.com/foldersync/foldersync/internal/tree"
)

// tempFileExtension is FreeFileSync's reserved suffix for in-progress
// writes and two-step move staging (spec.md §4.4 "Special rule", §4.5
// "Zero pass").
const tempFileExtension = ".ffs_tmp"

// Engine assigns a tree.Direction to every non-equal node in a
// comparison tree.
type Engine struct {
	Mode        Mode
	Set         DirectionSet
	Compare     *compare.Settings
	LastSynced  lssdb.Folder
	DetectMoves bool
}

// Run walks t, assigning directions to every non-root node. It also
// applies the reserved-temp-extension cleanup rule, and, when requested,
// runs move detection as a final pass.
func (e *Engine) Run(t *tree.Tree) {
	t.Walk(func(path string, node *tree.Node) {
		if !node.Active || node.Category == tree.CategoryEqual {
			return
		}
		if e.scheduleTempCleanup(node) {
			return
		}
		switch e.Mode {
		case ModeOneWay:
			if d, ok := e.Set.direction(node.Category); ok {
				node.Direction = d
			}
		default:
			e.twoWay(path, node)
		}
	})

	if e.DetectMoves {
		DetectMoves(t, e.LastSynced, e.Compare)
	}
}

// scheduleTempCleanup implements spec.md §4.4's special rule: an item
// whose name on its only-present side ends with the reserved temp-file
// extension is unconditionally scheduled for deletion on that side,
// regardless of mode or policy.
func (e *Engine) scheduleTempCleanup(node *tree.Node) bool {
	switch {
	case node.LeftOnly() && hasTempExtension(node.LeftName):
		node.Direction = tree.DirectionLeft
		return true
	case node.RightOnly() && hasTempExtension(node.RightName):
		node.Direction = tree.DirectionRight
		return true
	}
	return false
}

func hasTempExtension(name string) bool {
	n := len(name)
	e := len(tempFileExtension)
	return n >= e && name[n-e:] == tempFileExtension
}

// twoWay implements spec.md §4.4's two-way algorithm for a single
// non-equal node, consulting the LSSDB entry (if any) recorded at path.
func (e *Engine) twoWay(path string, node *tree.Node) {
	if node.Kind == tree.KindFolder {
		e.twoWayFolder(node)
		return
	}

	entry, ok := e.lookupFile(path)
	if !ok {
		e.defaultTwoWay(node)
		return
	}

	if !entryInSync(entry, e.Compare) {
		node.Category = tree.CategoryConflict
		node.ConflictReason = "database entry not in sync"
		node.Direction = tree.DirectionNone
		return
	}

	leftChanged := attrsChanged(node.LeftAttrs, entry.Size, entry.Left, e.Compare)
	rightChanged := attrsChanged(node.RightAttrs, entry.Size, entry.Right, e.Compare)

	switch {
	case !leftChanged && !rightChanged:
		// Both sides match the last-synced snapshot yet were categorized
		// non-equal: an impossible-but-observed state (spec.md §4.4).
		node.Category = tree.CategoryConflict
		node.ConflictReason = "no-change-but-unequal"
		node.Direction = tree.DirectionNone
	case leftChanged && !rightChanged:
		node.Direction = tree.DirectionRight
	case rightChanged && !leftChanged:
		node.Direction = tree.DirectionLeft
	default:
		node.Category = tree.CategoryConflict
		node.ConflictReason = "both sides changed"
		node.Direction = tree.DirectionNone
	}
}

// twoWayFolder handles the only categories CategorizeFolder can produce:
// left-only/right-only means a plain folder creation, propagated without
// an LSSDB consult (the LSSDB records file and symlink entries, not bare
// folder presence, so there's nothing to compare against here — spec.md
// §4.8 "Recursion" records sub-folder status purely to scope recursion,
// not as a point of comparison).
func (e *Engine) twoWayFolder(node *tree.Node) {
	switch node.Category {
	case tree.CategoryLeftOnly:
		node.Direction = tree.DirectionRight
	case tree.CategoryRightOnly:
		node.Direction = tree.DirectionLeft
	}
}

// defaultTwoWay applies the spec's two-way fallback rules when no LSSDB
// entry exists for this path (spec.md §4.4: "fall back to the default
// two-way rules (newer wins for equal-content variants)").
func (e *Engine) defaultTwoWay(node *tree.Node) {
	switch node.Category {
	case tree.CategoryLeftOnly:
		node.Direction = tree.DirectionRight
	case tree.CategoryRightOnly:
		node.Direction = tree.DirectionLeft
	case tree.CategoryLeftNewer:
		node.Direction = tree.DirectionRight
	case tree.CategoryRightNewer:
		node.Direction = tree.DirectionLeft
	case tree.CategoryDifferent, tree.CategoryInvalidTime:
		node.Category = tree.CategoryConflict
		node.ConflictReason = "no history and no clear winner"
		node.Direction = tree.DirectionNone
	case tree.CategoryConflict:
		node.Direction = tree.DirectionNone
	}
}

func (e *Engine) lookupFile(path string) (lssdb.FileEntry, bool) {
	entry, ok := walkToFile(e.LastSynced, path)
	return entry, ok
}

// walkToFile descends f along the slash-separated segments of path,
// matching names by normalized key (spec.md §3: names compared ignoring
// Unicode normal form).
func walkToFile(f lssdb.Folder, path string) (lssdb.FileEntry, bool) {
	dir, base := pathutil.Split(path)
	current := f
	if dir != "" {
		for _, segment := range splitSegments(dir) {
			sub, ok := lookupSubFolder(current, segment)
			if !ok {
				return lssdb.FileEntry{}, false
			}
			current = sub.Folder
		}
	}
	entry, ok := lookupFileEntry(current, base)
	return entry, ok
}

func splitSegments(path string) []string {
	var segments []string
	for path != "" {
		dir, base := pathutil.Split(path)
		segments = append([]string{base}, segments...)
		path = dir
	}
	return segments
}

func lookupSubFolder(f lssdb.Folder, name string) (*lssdb.SubFolder, bool) {
	key := pathutil.NormalizedKey(name)
	for n, sub := range f.SubFolders {
		if pathutil.NormalizedKey(n) == key {
			return sub, true
		}
	}
	return nil, false
}

func lookupFileEntry(f lssdb.Folder, name string) (lssdb.FileEntry, bool) {
	key := pathutil.NormalizedKey(name)
	for n, entry := range f.Files {
		if pathutil.NormalizedKey(n) == key {
			return entry, true
		}
	}
	return lssdb.FileEntry{}, false
}

// entryInSync reports whether an LSSDB file entry would still be
// considered equal under the currently active compare settings.
// Switching compare variant since the last sync always invalidates an
// entry; for the time-and-size variant, tightening the tolerance can
// also invalidate one even though the variant itself didn't change
// (spec.md §4.4 "database entry not in sync").
func entryInSync(entry lssdb.FileEntry, settings *compare.Settings) bool {
	if entry.Variant != settings.Variant {
		return false
	}
	if settings.Variant != compare.VariantTimeSize {
		return true
	}
	return settings.TimesEqual(entry.Left.ModTime, entry.Right.ModTime)
}

// attrsChanged reports whether a side's current attributes differ from
// what the LSSDB recorded for it at the last sync. Size is compared
// exactly; modification time is compared under the active tolerance,
// the same change-detection heuristic used regardless of compare
// variant — re-hashing file content on every run to detect "did this
// side change" would defeat the point of keeping a database at all.
func attrsChanged(current tree.Attributes, recordedSize uint64, recorded lssdb.Descriptor, settings *compare.Settings) bool {
	if current.Size != recordedSize {
		return true
	}
	return !settings.TimesEqual(current.ModTime, recorded.ModTime)
}
