package lssdb

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// magic identifies a database file (spec.md §4.8: "12-byte ASCII magic
// FreeFileSync").
var magic = [12]byte{'F', 'r', 'e', 'e', 'F', 'i', 'l', 'e', 'S', 'y', 'n', 'c'}

const (
	containerVersionCurrent = 10
	containerVersionLegacy9 = 9

	streamVersionCurrent = 3
	streamVersionLegacy2 = 2

	zlibCompressionLevel = 3
)

// session is one recorded synchronization session: its UUID, whether
// this file holds the "lead" half of the split payload, and the session
// payload belonging to it (spec.md §4.8 "for each session").
type session struct {
	id           uuid.UUID
	isLeadStream bool
	halfSize     uint64
	myHalf       []byte
}

// container is the top-level parsed structure of one database file:
// format version plus the list of sessions it records. A real-world file
// normally carries exactly one session (the pair's own), but the format
// supports more than one for forward compatibility, so the whole list is
// preserved even though this package only ever acts on the common one.
type container struct {
	version  uint32
	sessions []session
}

func readContainer(data []byte) (container, error) {
	var c container
	if len(data) < len(magic) {
		return c, fmt.Errorf("%w: file too short for magic", ErrCorrupted)
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return c, fmt.Errorf("%w: bad magic", ErrCorrupted)
	}
	r := bytes.NewReader(data[len(magic):])

	if err := binary.Read(r, binary.LittleEndian, &c.version); err != nil {
		return c, fmt.Errorf("%w: truncated version", ErrCorrupted)
	}
	if c.version == containerVersionLegacy9 {
		return c, describeLegacyVersion(c.version)
	}
	if c.version != containerVersionCurrent {
		return c, fmt.Errorf("%w: container version %d", ErrIncompatible, c.version)
	}

	var sessionCount uint32
	if err := binary.Read(r, binary.LittleEndian, &sessionCount); err != nil {
		return c, fmt.Errorf("%w: truncated session count", ErrCorrupted)
	}

	for i := uint32(0); i < sessionCount; i++ {
		s, err := readSession(r)
		if err != nil {
			return c, err
		}
		c.sessions = append(c.sessions, s)
	}

	return c, nil
}

func readSession(r *bytes.Reader) (session, error) {
	var s session

	idStr, err := readLengthPrefixedString(r)
	if err != nil {
		return s, fmt.Errorf("%w: truncated session uuid", ErrCorrupted)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return s, fmt.Errorf("%w: malformed session uuid: %v", ErrCorrupted, err)
	}
	s.id = id

	var leadByte uint8
	if err := binary.Read(r, binary.LittleEndian, &leadByte); err != nil {
		return s, fmt.Errorf("%w: truncated lead marker", ErrCorrupted)
	}
	s.isLeadStream = leadByte != 0

	rawStream, err := readLengthPrefixedBytes(r)
	if err != nil {
		return s, fmt.Errorf("%w: truncated raw stream", ErrCorrupted)
	}

	streamReader := bytes.NewReader(rawStream)
	var streamVersion uint32
	if err := binary.Read(streamReader, binary.LittleEndian, &streamVersion); err != nil {
		return s, fmt.Errorf("%w: truncated stream version", ErrCorrupted)
	}
	if streamVersion == streamVersionLegacy2 {
		return s, describeLegacyVersion(containerVersionLegacy9)
	}
	if streamVersion != streamVersionCurrent {
		return s, fmt.Errorf("%w: stream version %d", ErrIncompatible, streamVersion)
	}

	if err := binary.Read(streamReader, binary.LittleEndian, &s.halfSize); err != nil {
		return s, fmt.Errorf("%w: truncated half size", ErrCorrupted)
	}
	if s.halfSize > uint64(streamReader.Len()) {
		return s, fmt.Errorf("%w: truncated half payload", ErrCorrupted)
	}
	s.myHalf = make([]byte, s.halfSize)
	if _, err := io.ReadFull(streamReader, s.myHalf); err != nil {
		return s, fmt.Errorf("%w: truncated half payload", ErrCorrupted)
	}

	return s, nil
}

func writeContainer(c container) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	binary.Write(&buf, binary.LittleEndian, uint32(containerVersionCurrent))
	binary.Write(&buf, binary.LittleEndian, uint32(len(c.sessions)))
	for _, s := range c.sessions {
		writeSession(&buf, s)
	}
	return buf.Bytes()
}

func writeSession(dst *bytes.Buffer, s session) {
	writeLengthPrefixedString(dst, s.id.String())

	var leadByte uint8
	if s.isLeadStream {
		leadByte = 1
	}
	binary.Write(dst, binary.LittleEndian, leadByte)

	var stream bytes.Buffer
	binary.Write(&stream, binary.LittleEndian, uint32(streamVersionCurrent))
	binary.Write(&stream, binary.LittleEndian, uint64(len(s.myHalf)))
	stream.Write(s.myHalf)

	writeLengthPrefixedBytes(dst, stream.Bytes())
}

// compressStream zlib-compresses payload at the level spec.md §4.8 calls
// for ("compression level 3, trading a little ratio for a lot of
// speed").
func compressStream(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlibCompressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressStream(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	defer r.Close()
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return payload, nil
}

// writeLengthPrefixedBytes appends a uvarint length followed by data, the
// framing used both for a session's raw stream and for concatenating the
// three independently-compressed directory-description streams
// (text/small-num/big-num) into one payload blob.
func writeLengthPrefixedBytes(dst *bytes.Buffer, data []byte) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(data)))
	dst.Write(lenBuf[:n])
	dst.Write(data)
}

func readLengthPrefixedBytes(r *bytes.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Len()) {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeLengthPrefixedString(dst *bytes.Buffer, s string) {
	writeLengthPrefixedBytes(dst, []byte(s))
}

func readLengthPrefixedString(r *bytes.Reader) (string, error) {
	buf, err := readLengthPrefixedBytes(r)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

