//go:build !windows

package local

import (
	"os"
	"time"
)

// setModTime replays a modification time onto a file. An error from
// os.Chtimes is returned to the caller, which then sets SetModTimeFailed.
func setModTime(path string, seconds int64) error {
	t := time.Unix(seconds, 0)
	return os.Chtimes(path, t, t)
}
