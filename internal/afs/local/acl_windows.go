//go:build windows

package local

import (
	"os"

	"github.com/hectane/go-acl"
)

// applyPermissions replays source's mode onto target as a Windows ACL,
// since os.Chmod has no real effect on Windows. Mirrors mutagen's own use
// of github.com/hectane/go-acl for the same purpose on its Windows build.
func applyPermissions(target string, mode os.FileMode) error {
	return acl.Chmod(target, mode)
}
