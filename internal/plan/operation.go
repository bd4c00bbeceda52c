// Package plan implements the Sync Planner (spec.md §4.5): ordering a
// categorized, directioned comparison tree into the zero/one/two pass
// sequence the Sync Executor consumes, and tallying the SyncStatistics
// preview shown to the user before anything is written. Grounded on
// mutagen's staged-operation ordering in
// pkg/synchronization/core/reconcile.go (creations gated on parent
// existence, deletions processed independent of creation order) and
// original_source/FreeFileSync/Source/base/synchronization.cpp for the
// specific three-pass shape and the two-step move rewrite.
package plan

import "github.com/foldersync/foldersync/internal/tree"

// Kind identifies the concrete filesystem action an Operation asks the
// Sync Executor to perform.
type Kind uint8

const (
	// Create copies an item onto a side where it doesn't yet exist.
	Create Kind = iota
	// Overwrite replaces an existing item on the target side.
	Overwrite
	// Delete removes an item from one side (via the Deletion Handler).
	Delete
	// Move renames an item in place on one side to reflect a move/rename
	// detected on the other side.
	Move
	// Rename is a same-side two-step-move preparation step: renaming a
	// move-source to a temporary name before its final move is applied
	// (spec.md §4.5 "Zero pass").
	Rename
	// Metadata applies a modification-time-only update with no content
	// copy, for items whose content already matches but whose recorded
	// time needs to catch up (e.g. after a plain touch).
	Metadata
)

// String renders the kind for diagnostics.
func (k Kind) String() string {
	switch k {
	case Create:
		return "create"
	case Overwrite:
		return "overwrite"
	case Delete:
		return "delete"
	case Move:
		return "move"
	case Rename:
		return "rename"
	case Metadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// Side identifies which side's backend an Operation acts against.
type Side uint8

const (
	Left Side = iota
	Right
)

// Operation is one unit of work the Sync Executor performs against a
// single node (or, for Move/Rename, a pair of nodes).
type Operation struct {
	Kind Kind
	Side Side

	// Node is the primary node this operation acts on. For Move, it's
	// the creation-half (the node already holding the new name); for
	// Delete of the deletion-half of an unresolved create+delete pair,
	// it's the one-sided node being removed.
	Node tree.NodeID
	Path string

	// SourceName and TargetName hold the item name before and after a
	// Move or Rename, both relative to the same parent folder.
	SourceName, TargetName string

	// IsFolder reports whether Node is a KindFolder node, which the
	// executor needs to pick CreateFolderPlain/RemoveFolderRecursion vs.
	// their file-level equivalents.
	IsFolder bool

	// Size estimates the bytes this operation will move, for the
	// SyncStatistics preview and for pass-one/pass-two placement of
	// overwrites (spec.md §4.5 "space-freeing").
	Size uint64

	// ExistingTargetSize is the size of the item currently occupying the
	// target side for an Overwrite, used only to decide which pass it
	// belongs in.
	ExistingTargetSize uint64
}

// shrinksTarget reports whether performing this overwrite first reduces
// the target side's disk footprint, which is what earns it a pass-one
// slot ahead of creations (spec.md §4.5 "Pass one (space-freeing)").
func (o Operation) shrinksTarget() bool {
	return o.Kind == Overwrite && o.ExistingTargetSize > o.Size
}
