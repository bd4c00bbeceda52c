package lssdb

import (
	"fmt"
	"sort"

	"github.com/foldersync/foldersync/internal/compare"
)

// encoder walks a Folder tree depth-first, writing into the three
// parallel streams described in spec.md §4.8: text (names), small-num
// (counts, compare variants, sizes), big-num (mod-times, fingerprints).
// Map keys are visited in sorted order so that two encodes of an
// unmodified Folder produce byte-identical streams (spec.md §8 property
// 2: the LSSDB round-trips with no intervening changes as a no-op).
type encoder struct {
	text, small, big *streamWriter
}

func newEncoder() *encoder {
	return &encoder{text: &streamWriter{}, small: &streamWriter{}, big: &streamWriter{}}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *encoder) writeFolder(f Folder) {
	fileNames := sortedKeys(f.Files)
	e.small.writeUvarint(uint64(len(fileNames)))
	for _, name := range fileNames {
		entry := f.Files[name]
		e.text.writeString(name)
		e.small.writeByte(byte(entry.Variant))
		e.small.writeUvarint(entry.Size)
		e.big.writeFixed64(uint64(entry.Left.ModTime))
		e.big.writeFixed64(entry.Left.Fingerprint)
		e.big.writeFixed64(uint64(entry.Right.ModTime))
		e.big.writeFixed64(entry.Right.Fingerprint)
	}

	symlinkNames := sortedKeys(f.Symlinks)
	e.small.writeUvarint(uint64(len(symlinkNames)))
	for _, name := range symlinkNames {
		entry := f.Symlinks[name]
		e.text.writeString(name)
		e.big.writeFixed64(uint64(entry.Left.ModTime))
		e.big.writeFixed64(entry.Left.Fingerprint)
		e.big.writeFixed64(uint64(entry.Right.ModTime))
		e.big.writeFixed64(entry.Right.Fingerprint)
	}

	subNames := sortedKeys(f.SubFolders)
	e.small.writeUvarint(uint64(len(subNames)))
	for _, name := range subNames {
		sub := f.SubFolders[name]
		e.text.writeString(name)
		e.small.writeByte(byte(sub.Status))
		e.writeFolder(sub.Folder)
	}
}

// decoder is the matching reader for encoder.
type decoder struct {
	text, small, big *streamReader
}

func newDecoder(text, small, big []byte) *decoder {
	return &decoder{text: newStreamReader(text), small: newStreamReader(small), big: newStreamReader(big)}
}

func (d *decoder) readFolder() (Folder, error) {
	folder := NewFolder()

	fileCount, err := d.small.readUvarint()
	if err != nil {
		return folder, err
	}
	for i := uint64(0); i < fileCount; i++ {
		name, err := d.text.readString()
		if err != nil {
			return folder, err
		}
		variantByte, err := d.small.readByte()
		if err != nil {
			return folder, err
		}
		size, err := d.small.readUvarint()
		if err != nil {
			return folder, err
		}
		leftModTime, err := d.big.readFixed64()
		if err != nil {
			return folder, err
		}
		leftFingerprint, err := d.big.readFixed64()
		if err != nil {
			return folder, err
		}
		rightModTime, err := d.big.readFixed64()
		if err != nil {
			return folder, err
		}
		rightFingerprint, err := d.big.readFixed64()
		if err != nil {
			return folder, err
		}
		folder.Files[name] = FileEntry{
			Variant: compare.Variant(variantByte),
			Size:    size,
			Left:    Descriptor{ModTime: int64(leftModTime), Fingerprint: leftFingerprint},
			Right:   Descriptor{ModTime: int64(rightModTime), Fingerprint: rightFingerprint},
		}
	}

	symlinkCount, err := d.small.readUvarint()
	if err != nil {
		return folder, err
	}
	for i := uint64(0); i < symlinkCount; i++ {
		name, err := d.text.readString()
		if err != nil {
			return folder, err
		}
		leftModTime, err := d.big.readFixed64()
		if err != nil {
			return folder, err
		}
		leftFingerprint, err := d.big.readFixed64()
		if err != nil {
			return folder, err
		}
		rightModTime, err := d.big.readFixed64()
		if err != nil {
			return folder, err
		}
		rightFingerprint, err := d.big.readFixed64()
		if err != nil {
			return folder, err
		}
		folder.Symlinks[name] = SymlinkEntry{
			Left:  Descriptor{ModTime: int64(leftModTime), Fingerprint: leftFingerprint},
			Right: Descriptor{ModTime: int64(rightModTime), Fingerprint: rightFingerprint},
		}
	}

	subCount, err := d.small.readUvarint()
	if err != nil {
		return folder, err
	}
	for i := uint64(0); i < subCount; i++ {
		name, err := d.text.readString()
		if err != nil {
			return folder, err
		}
		statusByte, err := d.small.readByte()
		if err != nil {
			return folder, err
		}
		if statusByte > byte(StatusRightOnly) {
			return folder, fmt.Errorf("%w: invalid folder status %d", ErrCorrupted, statusByte)
		}
		nested, err := d.readFolder()
		if err != nil {
			return folder, err
		}
		folder.SubFolders[name] = &SubFolder{Status: FolderStatus(statusByte), Folder: nested}
	}

	return folder, nil
}
