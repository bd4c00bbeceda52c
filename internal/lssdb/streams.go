package lssdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// streamWriter accumulates one of the three parallel streams (text,
// small-num, big-num) that together make up a serialized directory
// description (spec.md §4.8). Grouping values by kind rather than
// interleaving them by record is what the spec credits with the ~20%
// compression improvement.
type streamWriter struct {
	buf bytes.Buffer
}

func (w *streamWriter) writeString(s string) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	w.buf.Write(lenBuf[:n])
	w.buf.WriteString(s)
}

func (w *streamWriter) writeUvarint(v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	w.buf.Write(buf[:n])
}

func (w *streamWriter) writeByte(b byte) {
	w.buf.WriteByte(b)
}

func (w *streamWriter) writeFixed64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.buf.Write(buf[:])
}

func (w *streamWriter) bytes() []byte { return w.buf.Bytes() }

// streamReader is the matching reader for streamWriter.
type streamReader struct {
	r *bytes.Reader
}

func newStreamReader(data []byte) *streamReader {
	return &streamReader{r: bytes.NewReader(data)}
}

func (r *streamReader) readString() (string, error) {
	n, err := binary.ReadUvarint(r.r)
	if err != nil {
		return "", fmt.Errorf("lssdb: truncated string length: %w", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", fmt.Errorf("lssdb: truncated string body: %w", err)
	}
	return string(buf), nil
}

func (r *streamReader) readUvarint() (uint64, error) {
	v, err := binary.ReadUvarint(r.r)
	if err != nil {
		return 0, fmt.Errorf("lssdb: truncated varint: %w", err)
	}
	return v, nil
}

func (r *streamReader) readByte() (byte, error) {
	return r.r.ReadByte()
}

func (r *streamReader) readFixed64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, fmt.Errorf("lssdb: truncated fixed64: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
