package lssdb

import (
	"bytes"
	"fmt"
	"os"

	"github.com/google/uuid"
)

func encodePayload(f Folder) []byte {
	enc := newEncoder()
	enc.writeFolder(f)

	var buf bytes.Buffer
	for _, stream := range [][]byte{enc.text.bytes(), enc.small.bytes(), enc.big.bytes()} {
		compressed, err := compressStream(stream)
		if err != nil {
			// zlib.NewWriterLevel only fails for an invalid level constant,
			// which is fixed at compile time, so this is unreachable.
			panic(fmt.Sprintf("lssdb: compress stream: %v", err))
		}
		writeLengthPrefixedBytes(&buf, compressed)
	}
	return buf.Bytes()
}

func decodePayload(data []byte) (Folder, error) {
	r := bytes.NewReader(data)
	var streams [3][]byte
	for i := range streams {
		compressed, err := readLengthPrefixedBytes(r)
		if err != nil {
			return Folder{}, err
		}
		streams[i], err = decompressStream(compressed)
		if err != nil {
			return Folder{}, err
		}
	}
	dec := newDecoder(streams[0], streams[1], streams[2])
	return dec.readFolder()
}

// Save writes the two halves of the database for a base folder pair:
// leftPath receives the lead half, rightPath the trail half, both
// tagged with sessionID so a future Load can recognize them as
// belonging together (spec.md §4.8: "payload split in half, one half
// stored in each side's file").
func Save(leftPath, rightPath string, sessionID uuid.UUID, folder Folder) error {
	full := encodePayload(folder)
	mid := (len(full) + 1) / 2
	leadHalf, trailHalf := full[:mid], full[mid:]

	leadSession := session{id: sessionID, isLeadStream: true, halfSize: uint64(len(leadHalf)), myHalf: leadHalf}
	trailSession := session{id: sessionID, isLeadStream: false, halfSize: uint64(len(trailHalf)), myHalf: trailHalf}

	if err := writeDatabaseFile(leftPath, leadSession); err != nil {
		return fmt.Errorf("lssdb: writing %s: %w", leftPath, err)
	}
	if err := writeDatabaseFile(rightPath, trailSession); err != nil {
		return fmt.Errorf("lssdb: writing %s: %w", rightPath, err)
	}
	return nil
}

func writeDatabaseFile(path string, s session) error {
	data := writeContainer(container{version: containerVersionCurrent, sessions: []session{s}})
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads and reassembles the common synchronization state for a
// base folder pair from its two database files. A missing file on
// either side is reported as ErrNotExisting, which callers should treat
// as "never synced" rather than a hard failure (spec.md §7).
func Load(leftPath, rightPath string) (Folder, error) {
	leftData, err := os.ReadFile(leftPath)
	if os.IsNotExist(err) {
		return Folder{}, ErrNotExisting
	} else if err != nil {
		return Folder{}, err
	}
	rightData, err := os.ReadFile(rightPath)
	if os.IsNotExist(err) {
		return Folder{}, ErrNotExisting
	} else if err != nil {
		return Folder{}, err
	}

	leftContainer, err := readContainer(leftData)
	if err != nil {
		return Folder{}, err
	}
	rightContainer, err := readContainer(rightData)
	if err != nil {
		return Folder{}, err
	}

	lead, trail, err := findCommonSession(leftContainer, rightContainer)
	if err != nil {
		return Folder{}, err
	}

	full := append(append([]byte{}, lead...), trail...)
	return decodePayload(full)
}

// findCommonSession locates the single session UUID present in both
// containers with opposite lead/trail markers, and returns its lead and
// trail halves in that order. More than one such match, or none,
// indicates a corrupted or foreign pairing (spec.md §7).
func findCommonSession(left, right container) (lead, trail []byte, err error) {
	rightByUUID := make(map[uuid.UUID]session, len(right.sessions))
	for _, s := range right.sessions {
		rightByUUID[s.id] = s
	}

	var matches int
	for _, ls := range left.sessions {
		rs, ok := rightByUUID[ls.id]
		if !ok || rs.isLeadStream == ls.isLeadStream {
			continue
		}
		matches++
		if ls.isLeadStream {
			lead, trail = ls.myHalf, rs.myHalf
		} else {
			lead, trail = rs.myHalf, ls.myHalf
		}
	}

	if matches > 1 {
		return nil, nil, ErrMultipleCommonSessions
	}
	if matches == 0 {
		return nil, nil, ErrNoCommonSession
	}
	return lead, trail, nil
}

// NewSessionID generates a fresh session identifier for a newly
// discovered base folder pair (spec.md §4.8).
func NewSessionID() uuid.UUID {
	return uuid.New()
}
