package checksum

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDigestAndVerify(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "f.bin")
	content := []byte("hello")
	if err := os.WriteFile(p, content, 0644); err != nil {
		t.Fatal(err)
	}

	sum := sha1.Sum(content)
	expected := fmt.Sprintf("%x", sum[:])

	got, err := Digest(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != expected {
		t.Fatalf("digest: got %s want %s", got, expected)
	}

	if err := Verify(p, strings.ToUpper(expected)); err != nil {
		t.Fatalf("upper-case hex should match: %v", err)
	}

	err = Verify(p, "deadbeef")
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchError, got %v", err)
	}
	if mismatch.Actual != expected || mismatch.Path != p {
		t.Fatalf("unexpected mismatch details: %+v", mismatch)
	}

	ok, err := Matches(p, expected)
	if err != nil || !ok {
		t.Fatalf("Matches: ok=%v err=%v", ok, err)
	}
}

func TestDigest_LargerThanChunk(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), ChunkSize) // 16 chunks
	p := filepath.Join(t.TempDir(), "big.bin")
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
	sum := sha1.Sum(data)

	got, err := Digest(p)
	if err != nil {
		t.Fatal(err)
	}
	if got != fmt.Sprintf("%x", sum[:]) {
		t.Fatalf("digest mismatch for multi-chunk file")
	}
}

func TestDigest_MissingFile(t *testing.T) {
	if _, err := Digest(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
