package lssdb

import "fmt"

// legacy container/stream versions are recognized only well enough to
// produce ErrIncompatible with a clear message rather than ErrCorrupted;
// this package does not attempt to read their payload, since the
// stream-version-2 layout predates the three-stream split this codec
// assumes (spec.md §4.8 footnote on stream format history). Nothing in
// this module upgrades such files; the migrate-db command fails on them
// with the same error.
func describeLegacyVersion(containerVersion uint32) error {
	if containerVersion == containerVersionLegacy9 {
		return fmt.Errorf("%w: container version 9 (stream version %d) requires migration before use", ErrIncompatible, streamVersionLegacy2)
	}
	return nil
}
