// Package syncexec implements the Sync Executor (spec.md §4.6): consuming
// a planned tree's three-pass operation sequence and replaying each leaf
// against the AFS backends behind a retry/ignore error wrapper. Grounded
// on original_source/FreeFileSync/Source/base/synchronization.cpp for the
// overwrite-as-safe-delete-then-copy behavior, the 2-step move fallback,
// and the parent-folder-on-demand discipline, and on mutagen's
// pkg/synchronization/core/apply.go for the "resolve operation, invoke
// primitive, update state" leaf loop shape.
package syncexec

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/compare"
	"github.com/foldersync/foldersync/internal/deletion"
	"github.com/foldersync/foldersync/internal/plan"
)

// ErrorAction tells tryReportingError how to proceed after the user's
// error callback has seen a failure.
type ErrorAction uint8

const (
	// ActionAbort propagates the error, failing this one leaf operation.
	ActionAbort ErrorAction = iota
	// ActionRetry re-invokes the failed primitive.
	ActionRetry
	// ActionIgnore swallows the error, treating the leaf as handled.
	ActionIgnore
)

// ErrorCallback is consulted on every primitive failure. A nil callback
// behaves as ActionAbort.
type ErrorCallback func(op plan.Operation, err error) ErrorAction

// Callback receives progress notifications as the executor runs. Every
// method may be nil-safe to call through a nil *Callback holder; callers
// that don't care about a given hook can embed NoopCallback.
type Callback interface {
	ItemStart(op plan.Operation)
	ItemDone(op plan.Operation, err error)
	BytesTransferred(n int64)
	Checkpoint(ctx context.Context) error
}

// NoopCallback implements Callback with no-ops, for embedding by callers
// that only care about a subset of the hooks.
type NoopCallback struct{}

func (NoopCallback) ItemStart(plan.Operation)          {}
func (NoopCallback) ItemDone(plan.Operation, error)    {}
func (NoopCallback) BytesTransferred(int64)            {}
func (NoopCallback) Checkpoint(context.Context) error  { return nil }

// Executor replays a Plan's operations against a pair of AFS backends.
type Executor struct {
	Left, Right             afs.Backend
	LeftDevice, RightDevice afs.DeviceID
	LeftDeletion, RightDeletion deletion.Handler

	// Compare and Verify gate the post-copy verification re-read
	// (spec.md §4.6 "Verification"). Verify is only honored when
	// Compare is non-nil.
	Compare *compare.Settings
	Verify  bool

	ErrorCallback ErrorCallback
	Callback      Callback

	// Concurrency is the per-device worker count; operations are
	// accounted to their destination device (spec.md §5 "Scheduling").
	// Defaults to 1.
	Concurrency int64

	errMu sync.Mutex
	errs  []error
}

func (e *Executor) backend(side plan.Side) afs.Backend {
	if side == plan.Left {
		return e.Left
	}
	return e.Right
}

func (e *Executor) device(side plan.Side) afs.DeviceID {
	if side == plan.Left {
		return e.LeftDevice
	}
	return e.RightDevice
}

func (e *Executor) deletionHandler(side plan.Side) deletion.Handler {
	if side == plan.Left {
		return e.LeftDeletion
	}
	return e.RightDeletion
}

func (e *Executor) callback() Callback {
	if e.Callback == nil {
		return NoopCallback{}
	}
	return e.Callback
}

func (e *Executor) concurrency() int64 {
	if e.Concurrency <= 0 {
		return 1
	}
	return e.Concurrency
}

// pathFor builds the afs.Path for a slash-separated display path on the
// given side, matching the convention internal/tree.Tree.Walk uses to
// build those display paths.
func (e *Executor) pathFor(side plan.Side, display string) afs.Path {
	var segments []string
	if display != "" {
		segments = strings.Split(display, "/")
	}
	return afs.Path{Device: e.device(side), Segments: segments}
}

// Run executes a Plan's zero, one, and two passes in order, honoring the
// guarantee that pass zero completes before pass one, and pass one before
// pass two (spec.md §5 "Ordering guarantees"). Within a pass, operations
// run concurrently up to Concurrency per destination device. Individual
// leaf failures (after their ErrorCallback has had a say) are collected
// and returned together; they do not stop unrelated leaves in the same
// pass from running.
func (e *Executor) Run(ctx context.Context, p *plan.Plan) error {
	for _, pass := range [][]plan.Operation{p.ZeroPass, p.PassOne, p.PassTwo} {
		if err := e.runPass(ctx, pass); err != nil {
			return err
		}
		if err := e.callback().Checkpoint(ctx); err != nil {
			return err
		}
	}
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return errors.Join(e.errs...)
}

func (e *Executor) runPass(ctx context.Context, ops []plan.Operation) error {
	sems := map[afs.DeviceID]*semaphore.Weighted{
		e.LeftDevice:  semaphore.NewWeighted(e.concurrency()),
		e.RightDevice: semaphore.NewWeighted(e.concurrency()),
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, op := range ops {
		op := op
		destDevice := e.device(destinationSide(op))
		sem := sems[destDevice]
		group.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			e.callback().ItemStart(op)
			err := e.execute(gctx, op)
			e.callback().ItemDone(op, err)
			if err != nil {
				e.errMu.Lock()
				e.errs = append(e.errs, fmt.Errorf("%v %s %q: %w", op.Side, op.Kind, op.Path, err))
				e.errMu.Unlock()
			}
			return nil
		})
	}
	return group.Wait()
}

// destinationSide reports which device an operation is accounted to
// (spec.md §5 "Scheduling": "accounted to the destination device").
func destinationSide(op plan.Operation) plan.Side {
	return op.Side
}

func (e *Executor) execute(ctx context.Context, op plan.Operation) error {
	switch op.Kind {
	case plan.Create:
		return e.tryReportingError(ctx, op, func() error { return e.doCreate(ctx, op) })
	case plan.Overwrite:
		return e.tryReportingError(ctx, op, func() error { return e.doOverwrite(ctx, op) })
	case plan.Delete:
		return e.tryReportingError(ctx, op, func() error { return e.doDelete(ctx, op) })
	case plan.Move:
		return e.tryReportingError(ctx, op, func() error { return e.doMove(ctx, op) })
	case plan.Rename:
		return e.tryReportingError(ctx, op, func() error { return e.doRename(ctx, op) })
	case plan.Metadata:
		// Not currently emitted by internal/plan.Build; no-op until a
		// metadata-only update path exists.
		return nil
	default:
		return fmt.Errorf("syncexec: unknown operation kind %v", op.Kind)
	}
}

// tryReportingError invokes fn, consulting ErrorCallback on failure and
// looping while it says retry, per spec.md §4.6 step 2.
func (e *Executor) tryReportingError(ctx context.Context, op plan.Operation, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		action := ActionAbort
		if e.ErrorCallback != nil {
			action = e.ErrorCallback(op, err)
		}
		switch action {
		case ActionRetry:
			continue
		case ActionIgnore:
			return nil
		default:
			return err
		}
	}
}

// ensureParent creates op's parent folder on the destination side,
// non-transactionally, treating "already exists as folder" as success
// (spec.md §4.6 "Parent-folder creation").
func (e *Executor) ensureParent(ctx context.Context, side plan.Side, display string) error {
	parent, _ := split(display)
	return e.ensureFolder(ctx, side, e.pathFor(side, parent))
}

func (e *Executor) ensureFolder(ctx context.Context, side plan.Side, path afs.Path) error {
	if len(path.Segments) == 0 {
		return nil
	}
	if err := e.ensureFolder(ctx, side, path.Parent()); err != nil {
		return err
	}
	return e.backend(side).CreateFolderPlain(ctx, path)
}

func split(display string) (parent, name string) {
	idx := strings.LastIndex(display, "/")
	if idx < 0 {
		return "", display
	}
	return display[:idx], display[idx+1:]
}

func (e *Executor) doCreate(ctx context.Context, op plan.Operation) error {
	if err := e.ensureParent(ctx, op.Side, op.Path); err != nil {
		return err
	}
	targetPath := e.pathFor(op.Side, op.Path)

	if op.IsFolder {
		return e.backend(op.Side).CreateFolderPlain(ctx, targetPath)
	}

	source := e.backend(oppositeSide(op.Side))
	sourcePath := e.pathFor(oppositeSide(op.Side), op.Path)
	_, sourceAttrs, err := source.GetItemType(ctx, sourcePath)
	if err != nil {
		return err
	}

	target := e.backend(op.Side)
	result, err := target.CopyFileTransactional(ctx, sourcePath, sourceAttrs, targetPath, afs.CopyOptions{
		Transactional:   true,
		CopyPermissions: true,
		PreDelete:       e.refuseToClobberFolder(ctx, op.Side, targetPath),
		OnBytes:         func(delta int64) error { e.callback().BytesTransferred(delta); return nil },
	})
	if err != nil {
		return err
	}
	return e.verify(ctx, source, sourcePath, target, targetPath, result)
}

func (e *Executor) doOverwrite(ctx context.Context, op plan.Operation) error {
	targetPath := e.pathFor(op.Side, op.Path)
	source := e.backend(oppositeSide(op.Side))
	sourcePath := e.pathFor(oppositeSide(op.Side), op.Path)
	_, sourceAttrs, err := source.GetItemType(ctx, sourcePath)
	if err != nil {
		return err
	}

	target := e.backend(op.Side)
	result, err := target.CopyFileTransactional(ctx, sourcePath, sourceAttrs, targetPath, afs.CopyOptions{
		Transactional:   true,
		CopyPermissions: true,
		PreDelete:       e.safeDeleteExistingTarget(ctx, op.Side, targetPath, op.Path),
		OnBytes:         func(delta int64) error { e.callback().BytesTransferred(delta); return nil },
	})
	if err != nil {
		return err
	}
	return e.verify(ctx, source, sourcePath, target, targetPath, result)
}

// refuseToClobberFolder is the Create pre-delete hook: it refuses to
// delete an existing target unless it is a plain file, so a create can
// never silently destroy a folder occupying its destination name
// (spec.md §4.6 step 3).
func (e *Executor) refuseToClobberFolder(ctx context.Context, side plan.Side, targetPath afs.Path) afs.PreDeleteHook {
	return func() error {
		backend := e.backend(side)
		itemType, _, err := backend.GetItemType(ctx, targetPath)
		if errors.Is(err, afs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if itemType == afs.ItemTypeFolder {
			return fmt.Errorf("syncexec: refusing to overwrite folder %q with a create", targetPath.Name())
		}
		return backend.RemoveFilePlain(ctx, targetPath)
	}
}

// safeDeleteExistingTarget is the Overwrite pre-delete hook: it routes
// the item currently at targetPath through the destination side's
// Deletion Handler before the transactional rename lands, making an
// overwrite effectively "safe-delete + copy" (spec.md §4.6 step 4).
func (e *Executor) safeDeleteExistingTarget(ctx context.Context, side plan.Side, targetPath afs.Path, relativePath string) afs.PreDeleteHook {
	return func() error {
		backend := e.backend(side)
		itemType, _, err := backend.GetItemType(ctx, targetPath)
		if errors.Is(err, afs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		return e.deletionHandler(side).Delete(ctx, backend, targetPath, itemType, relativePath)
	}
}

// verify re-reads the freshly written target and re-runs the Binary
// Comparator against the source, deleting the target and reporting a
// mismatch as an error if opted in (spec.md §4.6 "Verification").
func (e *Executor) verify(ctx context.Context, source afs.Backend, sourcePath afs.Path, target afs.Backend, targetPath afs.Path, result afs.CopyResult) error {
	if !e.Verify || e.Compare == nil {
		return nil
	}
	sourceStream, err := source.ReadStream(ctx, sourcePath)
	if err != nil {
		return err
	}
	defer sourceStream.Close()

	targetStream, err := target.ReadStream(ctx, targetPath)
	if err != nil {
		return err
	}
	defer targetStream.Close()

	same, err := compare.FilesHaveSameContent(sourceStream, targetStream, 0, nil)
	if err != nil {
		return err
	}
	if !same {
		_ = target.RemoveFilePlain(ctx, targetPath)
		return fmt.Errorf("syncexec: verification failed for %q after copy, target removed", targetPath.Name())
	}
	return nil
}

func (e *Executor) doDelete(ctx context.Context, op plan.Operation) error {
	backend := e.backend(op.Side)
	path := e.pathFor(op.Side, op.Path)

	itemType := afs.ItemTypeFile
	if op.IsFolder {
		itemType = afs.ItemTypeFolder
	} else {
		t, _, err := backend.GetItemType(ctx, path)
		if err != nil {
			return err
		}
		itemType = t
	}

	handler := e.deletionHandler(op.Side)
	if deletion.HasTempExtension(path.Name()) {
		handler = deletion.Permanent{}
	}
	return handler.Delete(ctx, backend, path, itemType, op.Path)
}

func (e *Executor) doMove(ctx context.Context, op plan.Operation) error {
	return e.rename(ctx, op, true)
}

func (e *Executor) doRename(ctx context.Context, op plan.Operation) error {
	return e.rename(ctx, op, false)
}

// rename resolves source/target paths sharing op.Path's parent folder
// and performs the rename, falling back to copy+delete on a cross-device
// or rename-unsupported failure for an actual Move (never for the
// zero-pass temp Rename, which is always same-device by construction).
func (e *Executor) rename(ctx context.Context, op plan.Operation, allowCrossDeviceFallback bool) error {
	parentDisplay, _ := split(op.Path)
	parent := e.pathFor(op.Side, parentDisplay)
	sourcePath := parent.Join(op.SourceName)
	targetPath := parent.Join(op.TargetName)
	backend := e.backend(op.Side)

	err := backend.RenameItem(ctx, sourcePath, targetPath)
	if err == nil {
		return nil
	}
	if !allowCrossDeviceFallback || (!errors.Is(err, afs.ErrCrossDevice) && !errors.Is(err, afs.ErrRenameUnsupported)) {
		return err
	}

	itemType, attrs, err := backend.GetItemType(ctx, sourcePath)
	if err != nil {
		return err
	}
	if itemType == afs.ItemTypeSymlink {
		if err := backend.CopySymlink(ctx, sourcePath, targetPath); err != nil {
			return err
		}
	} else {
		if _, err := backend.CopyFileTransactional(ctx, sourcePath, attrs, targetPath, afs.CopyOptions{
			Transactional:   true,
			CopyPermissions: true,
		}); err != nil {
			return err
		}
	}
	return backend.RemoveFilePlain(ctx, sourcePath)
}

func oppositeSide(side plan.Side) plan.Side {
	if side == plan.Left {
		return plan.Right
	}
	return plan.Left
}
