//go:build !windows

package local

import "golang.org/x/sys/unix"

// freeDiskSpace reports free bytes available to an unprivileged process
// on the filesystem containing path, using statfs the way mutagen's
// pkg/filesystem/format_statfs.go does.
func freeDiskSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
