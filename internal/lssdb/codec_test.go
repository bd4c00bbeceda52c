package lssdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/foldersync/foldersync/internal/compare"
	"github.com/google/uuid"
)

func sampleFolder() Folder {
	f := NewFolder()
	f.Files["report.pdf"] = FileEntry{
		Variant: compare.VariantTimeSize,
		Size:    4096,
		Left:    Descriptor{ModTime: 1000, Fingerprint: 11},
		Right:   Descriptor{ModTime: 1000, Fingerprint: 22},
	}
	f.Files["readme.txt"] = FileEntry{
		Variant: compare.VariantContent,
		Size:    12,
		Left:    Descriptor{ModTime: 2000, Fingerprint: 33},
		Right:   Descriptor{ModTime: 2000, Fingerprint: 33},
	}
	f.Symlinks["latest"] = SymlinkEntry{
		Left:  Descriptor{ModTime: 3000, Fingerprint: 44},
		Right: Descriptor{ModTime: 3000, Fingerprint: 44},
	}

	sub := NewFolder()
	sub.Files["nested.bin"] = FileEntry{
		Variant: compare.VariantSize,
		Size:    8,
		Left:    Descriptor{ModTime: 4000, Fingerprint: 55},
		Right:   Descriptor{ModTime: 4000, Fingerprint: 66},
	}
	f.SubFolders["archive"] = &SubFolder{Status: StatusBothSides, Folder: sub}
	f.SubFolders["leftonly"] = &SubFolder{Status: StatusLeftOnly, Folder: NewFolder()}

	return f
}

func foldersEqual(t *testing.T, a, b Folder) {
	t.Helper()
	if len(a.Files) != len(b.Files) || len(a.Symlinks) != len(b.Symlinks) || len(a.SubFolders) != len(b.SubFolders) {
		t.Fatalf("shape mismatch: %+v vs %+v", a, b)
	}
	for name, entry := range a.Files {
		other, ok := b.Files[name]
		if !ok || other != entry {
			t.Fatalf("file %q mismatch: %+v vs %+v", name, entry, other)
		}
	}
	for name, entry := range a.Symlinks {
		other, ok := b.Symlinks[name]
		if !ok || other != entry {
			t.Fatalf("symlink %q mismatch: %+v vs %+v", name, entry, other)
		}
	}
	for name, sub := range a.SubFolders {
		other, ok := b.SubFolders[name]
		if !ok || other.Status != sub.Status {
			t.Fatalf("subfolder %q mismatch", name)
		}
		foldersEqual(t, sub.Folder, other.Folder)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	original := sampleFolder()
	encoded := encodePayload(original)
	decoded, err := decodePayload(encoded)
	if err != nil {
		t.Fatal(err)
	}
	foldersEqual(t, original, decoded)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	leftPath := filepath.Join(dir, "left.ffs_db")
	rightPath := filepath.Join(dir, "right.ffs_db")

	original := sampleFolder()
	sessionID := NewSessionID()

	if err := Save(leftPath, rightPath, sessionID, original); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(leftPath, rightPath)
	if err != nil {
		t.Fatal(err)
	}
	foldersEqual(t, original, loaded)
}

func TestSaveIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	leftPathA := filepath.Join(dir, "a-left.ffs_db")
	rightPathA := filepath.Join(dir, "a-right.ffs_db")
	leftPathB := filepath.Join(dir, "b-left.ffs_db")
	rightPathB := filepath.Join(dir, "b-right.ffs_db")

	folder := sampleFolder()
	sessionID := uuid.New()

	if err := Save(leftPathA, rightPathA, sessionID, folder); err != nil {
		t.Fatal(err)
	}
	if err := Save(leftPathB, rightPathB, sessionID, folder); err != nil {
		t.Fatal(err)
	}

	dataA, err := os.ReadFile(leftPathA)
	if err != nil {
		t.Fatal(err)
	}
	dataB, err := os.ReadFile(leftPathB)
	if err != nil {
		t.Fatal(err)
	}
	if string(dataA) != string(dataB) {
		t.Fatal("expected re-saving an unmodified folder to be byte-identical")
	}
}

func TestLoadMissingFileReturnsErrNotExisting(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing-left.ffs_db"), filepath.Join(dir, "missing-right.ffs_db"))
	if err != ErrNotExisting {
		t.Fatalf("expected ErrNotExisting, got %v", err)
	}
}

func TestFindCommonSessionNoMatch(t *testing.T) {
	left := container{sessions: []session{{id: uuid.New(), isLeadStream: true}}}
	right := container{sessions: []session{{id: uuid.New(), isLeadStream: false}}}
	if _, _, err := findCommonSession(left, right); err != ErrNoCommonSession {
		t.Fatalf("expected ErrNoCommonSession, got %v", err)
	}
}

func TestFindCommonSessionMultipleMatches(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	left := container{sessions: []session{
		{id: idA, isLeadStream: true},
		{id: idB, isLeadStream: true},
	}}
	right := container{sessions: []session{
		{id: idA, isLeadStream: false},
		{id: idB, isLeadStream: false},
	}}
	if _, _, err := findCommonSession(left, right); err != ErrMultipleCommonSessions {
		t.Fatalf("expected ErrMultipleCommonSessions, got %v", err)
	}
}
