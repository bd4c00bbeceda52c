// Package config loads a synchronization job description from YAML,
// grounded on mutagen's session configuration layer
// (pkg/synchronization/configuration.go), which likewise decodes a
// user-facing document into the plain structs the rest of the engine
// consumes. Resolution of a job's two sides into live afs.Backend values
// is deliberately kept out of this package (see internal/backend.Resolve)
// so Job stays a pure, serializable description.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/compare"
	"github.com/foldersync/foldersync/internal/deletion"
	"github.com/foldersync/foldersync/internal/direction"
	"github.com/foldersync/foldersync/internal/tree"
)

// Job is one base-folder pair plus every setting governing how it is
// compared, filtered, and synchronized.
type Job struct {
	// Name labels the job in logs and in -edit/-sendto prompts; optional.
	Name string `yaml:"name"`

	// Left and Right are backend location strings, in the scheme syntax
	// internal/backend.Resolve accepts (a bare local path, or a
	// "sftp://", "ftp://", "gdrive://" URI).
	Left  string `yaml:"left"`
	Right string `yaml:"right"`

	Compare CompareConfig `yaml:"compare"`

	// Filter lists hard include/exclude patterns, one per line, in the
	// syntax internal/pathutil.NewFilter accepts.
	Filter []string `yaml:"filter"`

	Soft SoftFilterConfig `yaml:"softFilter"`

	Direction  DirectionConfig  `yaml:"direction"`
	LeftDelete DeletionConfig   `yaml:"leftDeletion"`
	RightDelete DeletionConfig  `yaml:"rightDeletion"`

	// DatabasePath overrides where the LSSDB pair is stored; defaults to
	// each side's base folder root when empty.
	DatabasePath string `yaml:"databasePath"`
}

// CompareConfig selects the Categorizer variant and its tolerances.
type CompareConfig struct {
	// Variant is one of "timeSize", "content", "size". Defaults to
	// "timeSize" when empty.
	Variant            string  `yaml:"variant"`
	ToleranceSeconds   int64   `yaml:"toleranceSeconds"`
	IgnoredTimeShifts  []int64 `yaml:"ignoredTimeShifts"`
}

// SoftFilterConfig is the YAML form of pathutil.SoftFilter.
type SoftFilterConfig struct {
	MinSize   uint64 `yaml:"minSize"`
	MaxSize   uint64 `yaml:"maxSize"`
	NewerThan int64  `yaml:"newerThan"`
	OlderThan int64  `yaml:"olderThan"`
}

// DirectionConfig selects the Direction Engine's mode and, for one-way
// mode, its fixed per-category directions.
type DirectionConfig struct {
	// Mode is one of "twoWay", "mirror", "update", "custom". Defaults to
	// "twoWay" when empty.
	Mode string `yaml:"mode"`

	// Custom is only consulted when Mode == "custom"; each field is one
	// of "left", "right", "none".
	Custom struct {
		ExLeftOnly  string `yaml:"exLeftOnly"`
		ExRightOnly string `yaml:"exRightOnly"`
		LeftNewer   string `yaml:"leftNewer"`
		RightNewer  string `yaml:"rightNewer"`
		Different   string `yaml:"different"`
		Conflict    string `yaml:"conflict"`
	} `yaml:"custom"`

	DetectMoves bool `yaml:"detectMoves"`
}

// DeletionConfig selects the Deletion Handler policy for one base folder
// side.
type DeletionConfig struct {
	// Kind is one of "permanent", "recycler", "versioning". Defaults to
	// "permanent" when empty.
	Kind string `yaml:"kind"`

	// VersioningRoot and Style are only consulted when Kind ==
	// "versioning". Style is one of "replace", "timestampFolder",
	// "timestampFile".
	VersioningRoot string `yaml:"versioningRoot"`
	Style          string `yaml:"style"`
}

// Load parses a Job from the YAML document at path.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading job configuration %q", path)
	}
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, errors.Wrapf(err, "parsing job configuration %q", path)
	}
	if job.Left == "" || job.Right == "" {
		return nil, errors.Errorf("job configuration %q must set both left and right", path)
	}
	return &job, nil
}

// Save writes job back out to path as YAML.
func Save(path string, job *Job) error {
	data, err := yaml.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "encoding job configuration")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing job configuration %q", path)
	}
	return nil
}

// CompareSettings builds the compare.Settings this job's CompareConfig
// describes. contentEqual is injected by the caller, since the
// Categorizer needs live backends to stream bytes for VariantContent.
func (c CompareConfig) CompareSettings(contentEqual func(left, right tree.Attributes) (bool, error)) *compare.Settings {
	variant := compare.VariantTimeSize
	switch c.Variant {
	case "content":
		variant = compare.VariantContent
	case "size":
		variant = compare.VariantSize
	}
	tolerance := c.ToleranceSeconds
	if tolerance == 0 {
		tolerance = compare.DefaultTolerance
	}
	return &compare.Settings{
		Variant:           variant,
		ToleranceSeconds:  tolerance,
		IgnoredTimeShifts: c.IgnoredTimeShifts,
		ContentEqual:      contentEqual,
	}
}

func parseDirection(s string) tree.Direction {
	switch s {
	case "left":
		return tree.DirectionLeft
	case "right":
		return tree.DirectionRight
	default:
		return tree.DirectionNone
	}
}

// DirectionSet resolves the six-way direction mapping for one-way mode.
func (d DirectionConfig) DirectionSet() direction.DirectionSet {
	switch d.Mode {
	case "mirror":
		return direction.Mirror()
	case "update":
		return direction.Update()
	default:
		return direction.DirectionSet{
			ExLeftOnly:  parseDirection(d.Custom.ExLeftOnly),
			ExRightOnly: parseDirection(d.Custom.ExRightOnly),
			LeftNewer:   parseDirection(d.Custom.LeftNewer),
			RightNewer:  parseDirection(d.Custom.RightNewer),
			Different:   parseDirection(d.Custom.Different),
			Conflict:    parseDirection(d.Custom.Conflict),
		}
	}
}

// EngineMode resolves the Direction Engine mode this job runs under.
func (d DirectionConfig) EngineMode() direction.Mode {
	if d.Mode == "" || d.Mode == "twoWay" {
		return direction.ModeTwoWay
	}
	return direction.ModeOneWay
}

// Policy resolves the deletion.Policy this configuration describes. root
// is the base folder's own afs.Path, used to resolve a relative
// VersioningRoot.
func (d DeletionConfig) Policy(root afs.Path) deletion.Policy {
	policy := deletion.Policy{}
	switch d.Kind {
	case "recycler":
		policy.Kind = deletion.PolicyRecycler
	case "versioning":
		policy.Kind = deletion.PolicyVersioning
		policy.VersioningRoot = afs.Path{Device: root.Device, Segments: append(append([]string{}, root.Segments...), splitPath(d.VersioningRoot)...)}
		switch d.Style {
		case "timestampFolder":
			policy.Style = deletion.TimestampFolder
		case "timestampFile":
			policy.Style = deletion.TimestampFile
		default:
			policy.Style = deletion.Replace
		}
	default:
		policy.Kind = deletion.PolicyPermanent
	}
	return policy
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(strings.Trim(p, "/"), "/")
}
