// Package must provides small helpers for cleanup operations whose errors
// can only be logged, not propagated, typically while unwinding after an
// earlier failure. Grounded on mutagen's pkg/must.
package must

import (
	"io"
	"os"

	"github.com/foldersync/foldersync/internal/logging"
)

// Close closes c, logging (rather than returning) any error. logger may
// be nil.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("unable to close: %s", err)
	}
}

// OSRemove removes path, logging (rather than returning) any error other
// than "not exist". logger may be nil.
func OSRemove(path string, logger *logging.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warnf("unable to remove %q: %s", path, err)
	}
}

// OSRemoveAll removes path recursively, logging rather than returning any
// error. logger may be nil.
func OSRemoveAll(path string, logger *logging.Logger) {
	if err := os.RemoveAll(path); err != nil {
		logger.Warnf("unable to remove %q recursively: %s", path, err)
	}
}
