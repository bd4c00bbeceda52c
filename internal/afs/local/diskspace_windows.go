//go:build windows

package local

import "golang.org/x/sys/windows"

// freeDiskSpace reports free bytes available on the volume containing
// path via GetDiskFreeSpaceEx.
func freeDiskSpace(path string) (uint64, error) {
	utf16Path, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var freeBytesAvailable, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(utf16Path, &freeBytesAvailable, &totalBytes, &totalFreeBytes); err != nil {
		return 0, err
	}
	return freeBytesAvailable, nil
}
