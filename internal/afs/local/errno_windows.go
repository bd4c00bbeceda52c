//go:build windows

package local

import "strings"

// isCrossDeviceErrno reports whether err indicates a cross-volume rename
// on Windows (ERROR_NOT_SAME_DEVICE). Windows syscall errors don't map
// onto syscall.EXDEV the way POSIX ones do, so this falls back to a
// message match, mirroring the pragmatic platform split mutagen uses in
// pkg/filesystem/directory_rename_*.go.
func isCrossDeviceErrno(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not the same device")
}
