package deletion

import "github.com/foldersync/foldersync/internal/afs"

// PolicyKind selects which Handler implementation a base folder uses.
type PolicyKind uint8

const (
	PolicyPermanent PolicyKind = iota
	PolicyRecycler
	PolicyVersioning
)

// Policy is the per-base-folder deletion configuration.
type Policy struct {
	Kind PolicyKind
	// VersioningRoot and Style are only meaningful for PolicyVersioning.
	VersioningRoot afs.Path
	Style          NamingStyle
}
