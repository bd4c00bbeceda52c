//go:build !windows

package local

import "syscall"

// isCrossDeviceErrno reports whether err is the platform's
// cross-device-link errno, which os.Rename surfaces when source and
// target reside on different volumes.
func isCrossDeviceErrno(err error) bool {
	errno, ok := err.(syscall.Errno)
	return ok && errno == syscall.EXDEV
}
