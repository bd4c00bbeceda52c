package tempbuffer

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/foldersync/foldersync/internal/afs"
)

func readCounter(data []byte, calls *int) func(context.Context) (io.ReadCloser, error) {
	return func(context.Context) (io.ReadCloser, error) {
		*calls++
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

func TestMaterializeWritesLocalCopy(t *testing.T) {
	buf, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buf.Close()

	d := FileDescriptor{Path: afs.Path{Device: "left", Segments: []string{"a.txt"}}, Size: 5, ModTime: 1000}
	var calls int
	local, err := buf.Materialize(context.Background(), d, readCounter([]byte("hello"), &calls))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("expected hello, got %q", data)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one read, got %d", calls)
	}
}

func TestMaterializeIsIdempotentForSameDescriptor(t *testing.T) {
	buf, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer buf.Close()

	d := FileDescriptor{Path: afs.Path{Device: "left", Segments: []string{"a.txt"}}, Size: 5, ModTime: 1000}
	var calls int
	first, err := buf.Materialize(context.Background(), d, readCounter([]byte("hello"), &calls))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	second, err := buf.Materialize(context.Background(), d, readCounter([]byte("hello"), &calls))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if first != second {
		t.Fatalf("expected same path for repeated materialize, got %q vs %q", first, second)
	}
	if calls != 1 {
		t.Fatalf("expected the second call to skip reading, got %d reads", calls)
	}
}

func TestInBufferNameKeepsExtensionAfterChecksum(t *testing.T) {
	d := FileDescriptor{Path: afs.Path{Segments: []string{"report.csv"}}, Size: 10, ModTime: 5}
	name := inBufferName(d)
	if got := name[len(name)-4:]; got != ".csv" {
		t.Fatalf("expected name to end in .csv, got %q (full name %q)", got, name)
	}
}

func TestCloseRemovesDirectory(t *testing.T) {
	base := t.TempDir()
	buf, err := New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := buf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(buf.dir); !os.IsNotExist(err) {
		t.Fatalf("expected buffer directory removed, stat err=%v", err)
	}
}
