// Package checksum computes and compares streaming SHA-1 digests of files.
//
// SHA-1 is what the upstream manifests publish; it identifies content, it does
// not authenticate it.
package checksum

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChunkSize is the read size used while hashing. It does not depend on the file size.
const ChunkSize = 8192

// MismatchError reports a file whose digest differs from the manifest
type MismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Digest returns the lowercase hex SHA-1 of the file at path
func Digest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hash verification: %w", err)
	}
	defer file.Close()

	return DigestReader(file)
}

// DigestReader hashes r in ChunkSize reads
func DigestReader(r io.Reader) (string, error) {
	hasher := sha1.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(hasher, onlyReader{r}, buf); err != nil {
		return "", fmt.Errorf("failed to read file for hashing: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Matches reports whether the file at path hashes to expected.
// Comparison is case-insensitive on the hex encoding.
func Matches(path, expected string) (bool, error) {
	actual, err := Digest(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, strings.TrimSpace(expected)), nil
}

// Verify returns a *MismatchError when the file at path does not hash to expected
func Verify(path, expected string) error {
	actual, err := Digest(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return &MismatchError{Path: path, Expected: expected, Actual: actual}
	}
	return nil
}

// onlyReader hides WriterTo/ReaderFrom so CopyBuffer really uses the fixed buffer
type onlyReader struct {
	io.Reader
}
