// Package marker manages the on-disk state the launcher keeps next to an
// installation: the version marker at the install root and the journal of
// the last operation.
package marker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the version marker at the installation root
const FileName = ".version"

// ErrNotInstalled is returned by Read when no marker exists
var ErrNotInstalled = errors.New("not installed")

// Path returns the marker location for an install root
func Path(root string) string {
	return filepath.Join(root, FileName)
}

// Write records version as the installed version
func Write(root, version string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	return os.WriteFile(Path(root), []byte(version), 0o644)
}

// Read returns the installed version, or ErrNotInstalled
func Read(root string) (string, error) {
	data, err := os.ReadFile(Path(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotInstalled
		}
		return "", fmt.Errorf("failed to read version marker: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Exists reports whether root holds an installation
func Exists(root string) bool {
	_, err := os.Stat(Path(root))
	return err == nil
}
