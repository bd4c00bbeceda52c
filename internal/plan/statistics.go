package plan

// maxConflictPreview bounds how many conflict paths the statistics
// preview carries, so a run with thousands of conflicts doesn't blow up
// the pre-sync summary the user reviews (spec.md §4.5 "a preview of up
// to K conflicts").
const maxConflictPreview = 50

// Statistics is the pre-execution tally the Planner hands the user for
// review (spec.md §4.5 "Statistics contract"). Create/update/delete
// counts are logical: one folder delete counts once regardless of how
// many descendants it recursively removes. The executor maintains its
// own physical counters as it runs.
type Statistics struct {
	LeftCreate, LeftUpdate, LeftDelete    int
	RightCreate, RightUpdate, RightDelete int
	TotalBytes                            uint64

	// ConflictPaths previews up to maxConflictPreview conflicted item
	// paths; ConflictCount is the true total, which may exceed the
	// preview's length.
	ConflictPaths []string
	ConflictCount int
}

func (s *Statistics) addConflict(path string) {
	s.ConflictCount++
	if len(s.ConflictPaths) < maxConflictPreview {
		s.ConflictPaths = append(s.ConflictPaths, path)
	}
}

func (s *Statistics) record(op Operation) {
	s.TotalBytes += op.Size
	switch op.Kind {
	case Create:
		s.bump(op.Side, create)
	case Overwrite, Metadata:
		s.bump(op.Side, update)
	case Delete:
		s.bump(op.Side, deleteCount)
	case Move, Rename:
		s.bump(op.Side, update)
	}
}

type counterKind uint8

const (
	create counterKind = iota
	update
	deleteCount
)

func (s *Statistics) bump(side Side, kind counterKind) {
	switch {
	case side == Left && kind == create:
		s.LeftCreate++
	case side == Left && kind == update:
		s.LeftUpdate++
	case side == Left && kind == deleteCount:
		s.LeftDelete++
	case side == Right && kind == create:
		s.RightCreate++
	case side == Right && kind == update:
		s.RightUpdate++
	case side == Right && kind == deleteCount:
		s.RightDelete++
	}
}
