//go:build !windows

package local

import (
	"context"
	"os"
	"sync"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/google/uuid"
)

// recycleBinAvailable reports whether the host has a usable trash
// implementation. POSIX systems without a desktop trash spec (freedesktop
// trash is a desktop-environment concept, not a kernel one) are treated as
// not supporting a recycle bin, which causes the Deletion Handler to fall
// back to permanent deletion per spec.md §4.7/§6(S6).
func recycleBinAvailable() bool { return false }

// posixRecycleSession is never actually used while recycleBinAvailable
// returns false, but is kept as the concrete session type so that a
// future freedesktop-trash implementation only needs to flip the
// availability check.
type posixRecycleSession struct {
	mu    sync.Mutex
	id    uuid.UUID
	items []afs.Path
}

func newRecycleSession() afs.RecycleSession {
	return &posixRecycleSession{id: uuid.New()}
}

func (s *posixRecycleSession) Recycle(ctx context.Context, path afs.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, path)
	return nil
}

func (s *posixRecycleSession) Finalize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if err := os.RemoveAll(nativePath(item)); err != nil {
			return err
		}
	}
	s.items = nil
	return nil
}
