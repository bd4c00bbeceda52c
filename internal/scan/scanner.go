package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/pathutil"
)

// SymlinkPolicy controls how the scanner treats symbolic links (spec.md
// §4.2 "Symlink policy").
type SymlinkPolicy uint8

const (
	// SymlinkExclude skips symlinks entirely.
	SymlinkExclude SymlinkPolicy = iota
	// SymlinkDirect records a symlink as a leaf item, never following
	// it.
	SymlinkDirect
	// SymlinkFollow dereferences the symlink, treating a folder target
	// as a nested folder and a file target as a regular file. Following
	// a folder symlink requires cycle detection.
	SymlinkFollow
)

// ErrScanCancelled indicates the scan context was cancelled or an error
// callback chose to abort.
var ErrScanCancelled = errors.New("scan: cancelled")

// ErrorAction tells the scanner how to proceed after a per-item read
// failure (spec.md §4.2 "Error handling").
type ErrorAction uint8

const (
	ErrorAbort ErrorAction = iota
	ErrorIgnore
	ErrorRetry
)

// ErrorCallback is consulted whenever an item's enumeration fails.
type ErrorCallback func(path string, err error) ErrorAction

// Options configures one side's scan.
type Options struct {
	// Root is the base folder to scan.
	Root afs.Path
	// Filter is the hard (name/path) filter, applied during traversal.
	// Nil means "everything included".
	Filter *pathutil.Filter
	// SymbolicLinks selects the symlink policy.
	SymbolicLinks SymlinkPolicy
	// Concurrency bounds how many folders this scan traverses at once
	// on this device (spec.md §4.2 "Concurrency"). Defaults to 1.
	Concurrency int64
	// SoftTimeout aborts the scan if exceeded; zero means no timeout
	// (spec.md §5 "Cancellation & timeouts" — folder-existence checks
	// during planning have a default 20s hard timeout, user-configurable;
	// the scanner reuses the same knob for its own traversal).
	SoftTimeout time.Duration
	// OnError is consulted on a per-item read failure. A nil callback
	// behaves as ErrorAbort.
	OnError ErrorCallback
}

// Scan walks Root via backend.TraverseFolder, producing a Container plus
// the set of paths whose enumeration failed. Items failing the hard
// filter are skipped entirely (never recorded, never reported as
// failures).
func Scan(ctx context.Context, backend afs.Backend, options Options) (*Container, []FailedRead, error) {
	if options.SoftTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.SoftTimeout)
		defer cancel()
	}

	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	s := &scanner{
		backend: backend,
		options: options,
		sem:     semaphore.NewWeighted(concurrency),
		visited: make(map[visitKey]bool),
	}

	container, err := s.scanFolder(ctx, options.Root, "")
	if err != nil {
		return nil, nil, err
	}
	return container, s.failed, nil
}

// visitKey identifies a folder already entered while following symlinks,
// for cycle detection (spec.md §4.2 "cycle detection (by resolved device
// fingerprint where available)").
type visitKey struct {
	device afs.DeviceID
	path   string
}

type scanner struct {
	backend afs.Backend
	options Options
	sem     *semaphore.Weighted

	mu      sync.Mutex
	failed  []FailedRead
	visited map[visitKey]bool
}

func (s *scanner) recordFailure(path string, err error) {
	s.mu.Lock()
	s.failed = append(s.failed, FailedRead{Path: path, Err: err})
	s.mu.Unlock()
}

func (s *scanner) markVisited(path afs.Path) bool {
	key := visitKey{device: path.Device, path: joinPath(path.Segments)}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visited[key] {
		return false
	}
	s.visited[key] = true
	return true
}

func joinPath(segments []string) string {
	out := ""
	for i, seg := range segments {
		if i > 0 {
			out += "/"
		}
		out += seg
	}
	return out
}

// scanFolder lists path's direct children, recursing into sub-folders
// concurrently up to the configured per-device concurrency.
func (s *scanner) scanFolder(ctx context.Context, path afs.Path, relativePath string) (*Container, error) {
	if !s.markVisited(path) {
		// Already visited via a followed symlink: treat as an empty
		// folder rather than looping forever.
		return NewContainer(), nil
	}

	container := NewContainer()

	type childFolder struct {
		name string
		path afs.Path
	}
	var folders []childFolder

	err := s.backend.TraverseFolder(ctx, path, func(name string, itemType afs.ItemType, attrs afs.FileAttributes) error {
		childRelative := name
		if relativePath != "" {
			childRelative = relativePath + "/" + name
		}
		if !s.options.Filter.Match(childRelative) {
			return nil
		}

		switch itemType {
		case afs.ItemTypeSymlink:
			switch s.options.SymbolicLinks {
			case SymlinkExclude:
				return nil
			case SymlinkDirect:
				target, _ := s.readSymlinkTarget(ctx, path.Join(name))
				container.Symlinks[name] = ItemRecord{Attrs: attrs, SymlinkTarget: target}
				return nil
			case SymlinkFollow:
				resolvedType, resolvedAttrs, err := s.backend.GetItemType(ctx, path.Join(name))
				if err != nil {
					return s.handleItemError(childRelative, err)
				}
				if resolvedType == afs.ItemTypeFolder {
					folders = append(folders, childFolder{name: name, path: path.Join(name)})
					return nil
				}
				container.Files[name] = ItemRecord{Attrs: resolvedAttrs}
				return nil
			}
			return nil
		case afs.ItemTypeFolder:
			folders = append(folders, childFolder{name: name, path: path.Join(name)})
			return nil
		default: // file
			container.Files[name] = ItemRecord{Attrs: attrs}
			return nil
		}
	})
	if err != nil {
		s.recordFailure(relativePath, err)
		return container, nil
	}

	if len(folders) == 0 {
		return container, nil
	}

	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	for _, f := range folders {
		f := f
		group.Go(func() error {
			if err := s.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer s.sem.Release(1)

			childRelative := f.name
			if relativePath != "" {
				childRelative = relativePath + "/" + f.name
			}
			sub, err := s.scanFolder(gctx, f.path, childRelative)
			if err != nil {
				return err
			}
			mu.Lock()
			container.SubFolders[f.name] = sub
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return container, nil
}

func (s *scanner) readSymlinkTarget(ctx context.Context, path afs.Path) (string, error) {
	stream, err := s.backend.ReadStream(ctx, path)
	if err != nil {
		return "", err
	}
	defer stream.Close()
	buf := make([]byte, 4096)
	n, _ := stream.Read(buf)
	return string(buf[:n]), nil
}

// handleItemError consults the error callback for a single failed item,
// recording a FailedRead unless the callback retries successfully is out
// of scope here (spec.md's retry applies to the whole enumeration call,
// which TraverseFolder already encapsulates per item).
func (s *scanner) handleItemError(path string, err error) error {
	action := ErrorAbort
	if s.options.OnError != nil {
		action = s.options.OnError(path, err)
	}
	switch action {
	case ErrorIgnore, ErrorRetry:
		s.recordFailure(path, err)
		return nil
	default:
		return err
	}
}
