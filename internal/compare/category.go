// Package compare implements the Categorizer (spec.md §4.3) and the
// Binary Comparator (spec.md §4.9). Grounded on
// original_source/FreeFileSync/Source/comparison.cpp for the exact
// category rules and original_source/FreeFileSync/Source/base/binary.cpp
// for the adaptive-block-size streaming comparison algorithm.
package compare

import (
	"github.com/foldersync/foldersync/internal/tree"
)

// Variant is the compare variant selected by the user for a base folder
// pair (spec.md §3 "BaseFolderPair", glossary "Compare variant").
type Variant uint8

const (
	// VariantTimeSize compares by modification time and size.
	VariantTimeSize Variant = iota
	// VariantContent compares by streaming byte equality.
	VariantContent
	// VariantSize compares by size (and name case) only.
	VariantSize
)

// DefaultTolerance is the default file-time tolerance in seconds,
// accommodating FAT32's 2-second timestamp resolution (spec.md glossary
// "Tolerance").
const DefaultTolerance int64 = 2

// Settings bundles the parameters the Categorizer needs beyond the two
// items themselves.
type Settings struct {
	Variant Variant
	// ToleranceSeconds is the file-time tolerance; two mod-times within
	// this many seconds of each other are considered equal.
	ToleranceSeconds int64
	// IgnoredTimeShifts lists additional offsets (in seconds) that should
	// also be treated as "equal time", to tolerate predictable clock
	// skews such as DST or FAT/NTFS timezone differences.
	IgnoredTimeShifts []int64
	// ContentEqual is called for VariantContent comparisons; it streams
	// both sides and must return true iff they're byte-identical. It is
	// injected so the Categorizer doesn't need direct access to a live
	// Backend.
	ContentEqual func(left, right tree.Attributes) (bool, error)
}

// TimesEqual reports whether two modification times are equal under the
// configured tolerance and ignored-time-shift offsets. Exported so
// internal/direction can reuse the same change-detection heuristic the
// Categorizer uses, without duplicating the tolerance/ignored-shift
// logic.
func (s *Settings) TimesEqual(left, right int64) bool {
	return s.timesEqual(left, right)
}

func (s *Settings) tolerance() int64 {
	if s.ToleranceSeconds > 0 {
		return s.ToleranceSeconds
	}
	return DefaultTolerance
}

// timesEqual reports whether two modification times are equal under the
// configured tolerance and ignored-time-shift offsets.
func (s *Settings) timesEqual(left, right int64) bool {
	delta := left - right
	if delta < 0 {
		delta = -delta
	}
	if delta <= s.tolerance() {
		return true
	}
	for _, shift := range s.IgnoredTimeShifts {
		shifted := shift
		if shifted < 0 {
			shifted = -shifted
		}
		d := delta - shifted
		if d < 0 {
			d = -d
		}
		if d <= s.tolerance() {
			return true
		}
	}
	return false
}

// invalidTime reports whether t predates the epoch, which the original
// treats as a sentinel for "the filesystem couldn't report a sane time"
// (spec.md §4.3 table, "invalid time (e.g. pre-1970)").
func invalidTime(t int64) bool {
	return t < 0
}

// CategorizeFile assigns a FileContentCategory to a file pair present on
// both sides, per the compare-variant table in spec.md §4.3.
func CategorizeFile(settings *Settings, left, right tree.Attributes, leftName, rightName string) (tree.Category, string, error) {
	if invalidTime(left.ModTime) || invalidTime(right.ModTime) {
		return tree.CategoryInvalidTime, "", nil
	}

	switch settings.Variant {
	case VariantSize:
		if left.Size == right.Size && leftName == rightName {
			return tree.CategoryEqual, "", nil
		}
		return tree.CategoryDifferent, "", nil

	case VariantContent:
		if left.Size != right.Size {
			return tree.CategoryDifferent, "", nil
		}
		equal, err := settings.ContentEqual(left, right)
		if err != nil {
			return tree.CategoryConflict, err.Error(), err
		}
		if equal {
			return tree.CategoryEqual, "", nil
		}
		return tree.CategoryDifferent, "", nil

	default: // VariantTimeSize
		sameSize := left.Size == right.Size
		sameTime := settings.timesEqual(left.ModTime, right.ModTime)
		switch {
		case sameSize && sameTime:
			return tree.CategoryEqual, "", nil
		case !sameSize && sameTime:
			return tree.CategoryConflict, "same modification time, different size", nil
		case left.ModTime > right.ModTime:
			return tree.CategoryLeftNewer, "", nil
		case right.ModTime > left.ModTime:
			return tree.CategoryRightNewer, "", nil
		default:
			return tree.CategoryEqual, "", nil
		}
	}
}

// CategorizeFolder assigns a category to a folder pair: only equal,
// left-only, right-only, or conflict are meaningful for folders (spec.md
// §4.3, "When the item is a folder...").
func CategorizeFolder(leftPresent, rightPresent bool) tree.Category {
	switch {
	case leftPresent && rightPresent:
		return tree.CategoryEqual
	case leftPresent:
		return tree.CategoryLeftOnly
	case rightPresent:
		return tree.CategoryRightOnly
	default:
		return tree.CategoryEqual
	}
}

// CategorizeSymlink assigns a category to a symlink pair by comparing the
// link target strings, whatever the configured compare variant; only
// under the time-and-size variant are the modification times compared
// as well.
// Supplemented from original_source/FreeFileSync/Source/comparison.cpp,
// which special-cases symlinks this way rather than content-comparing
// their target bytes.
func CategorizeSymlink(settings *Settings, leftTarget, rightTarget string, left, right tree.Attributes) tree.Category {
	if leftTarget != rightTarget {
		return tree.CategoryDifferent
	}
	if settings.Variant == VariantTimeSize && !settings.timesEqual(left.ModTime, right.ModTime) {
		if left.ModTime > right.ModTime {
			return tree.CategoryLeftNewer
		}
		return tree.CategoryRightNewer
	}
	return tree.CategoryEqual
}

// DisplayOnlyCaseDiffers reports whether two present names differ only by
// case, in which case spec.md §3 invariant (b) requires tagging the node
// "differ in attributes only" rather than treating it as a plain name
// match.
func DisplayOnlyCaseDiffers(left, right string) bool {
	if left == right || left == "" || right == "" {
		return false
	}
	return foldEqual(left, right)
}

func foldEqual(a, b string) bool {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) != len(rb) {
		return false
	}
	for i := range ra {
		ca, cb := ra[i], rb[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
