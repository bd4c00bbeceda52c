//go:build !windows

package local

import "os"

// applyPermissions replays source's mode onto target via a plain chmod;
// POSIX permission bits are already handled by os.Chmod.
func applyPermissions(target string, mode os.FileMode) error {
	return os.Chmod(target, mode)
}
