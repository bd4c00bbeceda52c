package compare

import (
	"bytes"
	"strings"
	"testing"
)

func TestFilesHaveSameContentReflexive(t *testing.T) {
	data := strings.Repeat("hello world ", 1000)
	equal, err := FilesHaveSameContent(strings.NewReader(data), strings.NewReader(data), 64, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !equal {
		t.Fatal("expected identical readers to compare equal")
	}
}

func TestFilesHaveSameContentSymmetric(t *testing.T) {
	a := strings.Repeat("A", 10000)
	b := strings.Repeat("A", 9999) + "B"

	equalAB, err := FilesHaveSameContent(strings.NewReader(a), strings.NewReader(b), 128, nil)
	if err != nil {
		t.Fatal(err)
	}
	equalBA, err := FilesHaveSameContent(strings.NewReader(b), strings.NewReader(a), 128, nil)
	if err != nil {
		t.Fatal(err)
	}
	if equalAB != equalBA {
		t.Fatal("comparison must be symmetric")
	}
	if equalAB {
		t.Fatal("expected differing trailing byte to be detected")
	}
}

func TestFilesHaveSameContentDifferentLengths(t *testing.T) {
	equal, err := FilesHaveSameContent(strings.NewReader("short"), strings.NewReader("short but longer"), 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if equal {
		t.Fatal("expected different-length readers to compare unequal")
	}
}

func TestFilesHaveSameContentByteDeltaCallback(t *testing.T) {
	var total int64
	data := bytes.Repeat([]byte{0x42}, 5000)
	equal, err := FilesHaveSameContent(bytes.NewReader(data), bytes.NewReader(data), 512, func(delta int64) error {
		total += delta
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !equal {
		t.Fatal("expected equal content")
	}
	if total != int64(len(data)) {
		t.Fatalf("expected byte delta callback to report %d bytes total, got %d", len(data), total)
	}
}

func TestDivideSplitsQuotaInTwo(t *testing.T) {
	var sum int64
	left, right := Divide(func(delta int64) error {
		sum += delta
		return nil
	})
	_ = left(100)
	_ = right(100)
	if sum != 100 {
		t.Fatalf("expected split callbacks to sum to original delta, got %d", sum)
	}
}
