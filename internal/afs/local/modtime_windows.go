//go:build windows

package local

import (
	"os"
	"time"
)

// setModTime replays a modification time onto a file on Windows.
func setModTime(path string, seconds int64) error {
	t := time.Unix(seconds, 0)
	return os.Chtimes(path, t, t)
}
