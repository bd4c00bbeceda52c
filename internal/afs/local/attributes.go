package local

import (
	"io/fs"

	"github.com/foldersync/foldersync/internal/afs"
)

// attributesOf extracts FileAttributes from a stdlib FileInfo, delegating
// the fingerprint computation to the platform-specific implementation in
// fingerprint_posix.go / fingerprint_windows.go.
func attributesOf(info fs.FileInfo) afs.FileAttributes {
	var size uint64
	if !info.IsDir() {
		size = uint64(info.Size())
	}
	return afs.FileAttributes{
		ModTime:     info.ModTime().Unix(),
		Size:        size,
		Fingerprint: fingerprintOf(info),
	}
}
