package plan

import "github.com/foldersync/foldersync/internal/tree"

// tempRenameSuffix names the synthesized temporary item a two-step move
// renames its source to before the final move is applied, reusing the
// same reserved extension the Direction Engine's cleanup rule targets
// (spec.md §4.5 "Zero pass", §3 glossary "reserved temp-file extension").
const tempRenameSuffix = ".ffs_tmp"

// Plan is the ordered, three-pass sequence of operations the Sync
// Executor consumes, plus the pre-execution statistics preview.
type Plan struct {
	ZeroPass   []Operation
	PassOne    []Operation
	PassTwo    []Operation
	Statistics Statistics
}

// Build walks t and produces a Plan. t must already have categories,
// directions, and move-references assigned (internal/compare,
// internal/direction).
func Build(t *tree.Tree) *Plan {
	b := &builder{tree: t, path: make(map[tree.NodeID]string), consumed: make(map[tree.NodeID]bool)}
	t.Walk(func(path string, node *tree.Node) {
		b.path[node.ID()] = path
	})

	p := &Plan{}

	t.Walk(func(path string, node *tree.Node) {
		if !node.Active || b.consumed[node.ID()] {
			return
		}
		if node.Category == tree.CategoryConflict {
			p.Statistics.addConflict(path)
			return
		}
		if node.MoveRef != tree.NoNode {
			b.planMove(p, node)
			return
		}
		if node.Direction == tree.DirectionNone {
			return
		}
		b.planOrdinary(p, path, node)
	})

	return p
}

type builder struct {
	tree     *tree.Tree
	path     map[tree.NodeID]string
	consumed map[tree.NodeID]bool
}

// planMove handles one half of a detected move pair, emitting a single
// Move (or, for a colliding destination, a Rename-then-Move pair) and
// marking both halves consumed so the partner isn't processed again when
// the walk reaches it.
func (b *builder) planMove(p *Plan, node *tree.Node) {
	partner := b.tree.Node(node.MoveRef)
	if b.consumed[node.ID()] || b.consumed[partner.ID()] {
		return
	}
	b.consumed[node.ID()] = true
	b.consumed[partner.ID()] = true

	var deletionHalf, creationHalf *tree.Node
	switch {
	case node.RightOnly() && partner.LeftOnly():
		deletionHalf, creationHalf = node, partner
	case node.LeftOnly() && partner.RightOnly():
		deletionHalf, creationHalf = partner, node
	default:
		// Not a well-formed move pair (both one-sided on the same side);
		// fall back to treating each half independently rather than
		// guessing.
		b.consumed[node.ID()] = false
		b.consumed[partner.ID()] = false
		b.planOrdinary(p, b.path[node.ID()], node)
		b.planOrdinary(p, b.path[partner.ID()], partner)
		return
	}

	var side Side
	var sourceName, targetName string
	if deletionHalf.RightOnly() {
		side = Right
		sourceName, targetName = deletionHalf.RightName, creationHalf.LeftName
	} else {
		side = Left
		sourceName, targetName = deletionHalf.LeftName, creationHalf.RightName
	}

	op := Operation{
		Kind:       Move,
		Side:       side,
		Node:       creationHalf.ID(),
		Path:       b.path[creationHalf.ID()],
		SourceName: sourceName,
		TargetName: targetName,
		IsFolder:   creationHalf.Kind == tree.KindFolder,
		Size:       sideSize(creationHalf, oppositeSide(side)),
	}

	if b.destinationOccupied(creationHalf, side, targetName) {
		tempName := targetName + tempRenameSuffix
		p.ZeroPass = append(p.ZeroPass, Operation{
			Kind:       Rename,
			Side:       side,
			Node:       deletionHalf.ID(),
			Path:       b.path[deletionHalf.ID()],
			SourceName: sourceName,
			TargetName: tempName,
			IsFolder:   deletionHalf.Kind == tree.KindFolder,
		})
		op.SourceName = tempName
	}

	p.PassTwo = append(p.PassTwo, op)
	p.Statistics.record(op)
}

// destinationOccupied reports whether side already has a distinct,
// surviving (non-deleted) sibling at targetName, which would clash with
// a direct rename and requires the two-step move rewrite (spec.md §4.5
// "Zero pass (move preparation)").
func (b *builder) destinationOccupied(creationHalf *tree.Node, side Side, targetName string) bool {
	parent := b.tree.Node(creationHalf.Parent)
	existingID, ok := parent.Children[targetName]
	if !ok || existingID == creationHalf.ID() {
		return false
	}
	existing := b.tree.Node(existingID)
	if side == Right {
		return existing.RightName != "" && existing.Direction != tree.DirectionRight
	}
	return existing.LeftName != "" && existing.Direction != tree.DirectionLeft
}

// planOrdinary handles a non-move node: its Direction plus Category
// determine whether it's a creation, overwrite, deletion, or metadata
// update, and which pass it belongs in.
func (b *builder) planOrdinary(p *Plan, path string, node *tree.Node) {
	side := sideFor(node.Direction)

	switch node.Category {
	case tree.CategoryLeftOnly:
		b.emitOneSided(p, path, node, node.Direction == tree.DirectionLeft)
	case tree.CategoryRightOnly:
		b.emitOneSided(p, path, node, node.Direction == tree.DirectionRight)
	case tree.CategoryLeftNewer, tree.CategoryRightNewer, tree.CategoryDifferent:
		op := Operation{
			Kind:               Overwrite,
			Side:               side,
			Node:               node.ID(),
			Path:               path,
			IsFolder:           node.Kind == tree.KindFolder,
			Size:               sideSize(node, oppositeSide(side)),
			ExistingTargetSize: sideSize(node, side),
		}
		if op.shrinksTarget() {
			p.PassOne = append(p.PassOne, op)
		} else {
			p.PassTwo = append(p.PassTwo, op)
		}
		p.Statistics.record(op)
	}
}

// emitOneSided handles a left-only/right-only node whose direction
// schedules deletion of the only side present (isDeletion) vs. creation
// on the missing side.
func (b *builder) emitOneSided(p *Plan, path string, node *tree.Node, isDeletion bool) {
	presentSide := Left
	if node.RightOnly() {
		presentSide = Right
	}

	if isDeletion {
		op := Operation{
			Kind:     Delete,
			Side:     presentSide,
			Node:     node.ID(),
			Path:     path,
			IsFolder: node.Kind == tree.KindFolder,
			Size:     sideSize(node, presentSide),
		}
		p.PassOne = append(p.PassOne, op)
		p.Statistics.record(op)
		return
	}

	op := Operation{
		Kind:     Create,
		Side:     oppositeSide(presentSide),
		Node:     node.ID(),
		Path:     path,
		IsFolder: node.Kind == tree.KindFolder,
		Size:     sideSize(node, presentSide),
	}
	p.PassTwo = append(p.PassTwo, op)
	p.Statistics.record(op)
}

func sideFor(d tree.Direction) Side {
	if d == tree.DirectionLeft {
		return Left
	}
	return Right
}

func oppositeSide(s Side) Side {
	if s == Left {
		return Right
	}
	return Left
}

func sideSize(node *tree.Node, side Side) uint64 {
	if side == Left {
		return node.LeftAttrs.Size
	}
	return node.RightAttrs.Size
}
