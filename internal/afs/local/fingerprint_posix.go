//go:build !windows

package local

import (
	"io/fs"
	"syscall"

	"github.com/foldersync/foldersync/internal/afs"
)

// fingerprintOf computes an opaque fingerprint from the device and inode
// numbers reported by the kernel, matching mutagen's approach in
// pkg/filesystem/device_posix.go of using (device, inode) as a stable
// per-volume file identity.
func fingerprintOf(info fs.FileInfo) afs.Fingerprint {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	// Fold device and inode into a single 64-bit value. Collisions across
	// extremely large device numbers are possible but irrelevant in
	// practice: the fingerprint only needs to be unique within the
	// current scan.
	combined := (uint64(stat.Dev) << 32) ^ uint64(stat.Ino)
	if combined == 0 {
		// Never return the reserved "unknown" sentinel for a real file.
		combined = 1
	}
	return afs.Fingerprint(combined)
}
