package deletion

import (
	"context"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/logging"
)

// Recycler defers to a backend's batched recycle session, finalizing
// the whole sweep in one call (spec.md §4.7 "recycler").
type Recycler struct {
	session afs.RecycleSession
}

// NewHandlerFor picks the concrete Handler for a base folder's
// configured policy, applying the recycler's documented fallback:
// if the backend has no recycle bin (or session creation otherwise
// fails), it falls back to Permanent and logs a user-visible warning at
// plan time rather than failing the whole sync (spec.md §4.7
// "recycler" paragraph).
func NewHandlerFor(ctx context.Context, policy Policy, backend afs.Backend, logger *logging.Logger) (Handler, error) {
	switch policy.Kind {
	case PolicyPermanent:
		return Permanent{}, nil
	case PolicyRecycler:
		return newRecycler(ctx, backend, logger)
	case PolicyVersioning:
		return &Versioner{VersioningRoot: policy.VersioningRoot, Style: policy.Style}, nil
	default:
		return Permanent{}, nil
	}
}

func newRecycler(ctx context.Context, backend afs.Backend, logger *logging.Logger) (Handler, error) {
	if !backend.SupportsRecycleBin() {
		logger.Warnf("backend has no recycle bin; falling back to permanent deletion")
		return Permanent{}, nil
	}
	session, err := backend.CreateRecycleSession(ctx)
	if err != nil {
		logger.Warnf("could not start recycle session (%v); falling back to permanent deletion", err)
		return Permanent{}, nil
	}
	return &Recycler{session: session}, nil
}

func (r *Recycler) Delete(ctx context.Context, _ afs.Backend, path afs.Path, _ afs.ItemType, _ string) error {
	return r.session.Recycle(ctx, path)
}

func (r *Recycler) Finalize(ctx context.Context) error {
	return r.session.Finalize(ctx)
}
