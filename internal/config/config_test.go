package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foldersync/foldersync/internal/afs"
	"github.com/foldersync/foldersync/internal/deletion"
	"github.com/foldersync/foldersync/internal/direction"
)

const sample = `
name: photos
left: /home/user/Photos
right: sftp://backup.example.com/Photos
compare:
  variant: content
  toleranceSeconds: 5
filter:
  - "!*.tmp"
direction:
  mode: mirror
rightDeletion:
  kind: versioning
  versioningRoot: .ffs-versions
  style: timestampFile
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestLoadParsesBothSidesAndCompareSettings(t *testing.T) {
	job, err := Load(writeSample(t))
	require.NoError(t, err)
	require.Equal(t, "photos", job.Name)
	require.Equal(t, "/home/user/Photos", job.Left)
	require.Equal(t, "sftp://backup.example.com/Photos", job.Right)

	settings := job.Compare.CompareSettings(nil)
	require.Equal(t, int64(5), settings.ToleranceSeconds)
}

func TestLoadRejectsMissingSide(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("left: /a\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestDirectionConfigResolvesMirror(t *testing.T) {
	job, err := Load(writeSample(t))
	require.NoError(t, err)
	require.Equal(t, direction.ModeOneWay, job.Direction.EngineMode())
	set := job.Direction.DirectionSet()
	mirror := direction.Mirror()
	require.Equal(t, mirror, set)
}

func TestDeletionConfigResolvesVersioningRoot(t *testing.T) {
	job, err := Load(writeSample(t))
	require.NoError(t, err)
	root := afs.Path{Device: "right", Segments: []string{"Photos"}}
	policy := job.RightDelete.Policy(root)
	require.Equal(t, deletion.PolicyVersioning, policy.Kind)
	require.Equal(t, deletion.TimestampFile, policy.Style)
	require.Equal(t, []string{"Photos", ".ffs-versions"}, policy.VersioningRoot.Segments)
}
