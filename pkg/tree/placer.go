package tree

import (
	"fmt"
	"os"
	"runtime"

	"github.com/go-pistonlauncher/pkg/utils"
)

const (
	regularMode    os.FileMode = 0o644
	executableMode os.FileMode = 0o755
)

// FilePlacer applies the final permissions to an installed file
type FilePlacer struct {
	logger *utils.Logger
}

// NewFilePlacer creates a new file placer
func NewFilePlacer(logger *utils.Logger) *FilePlacer {
	return &FilePlacer{logger: logger}
}

// Place sets 0755 on executables and 0644 on everything else
func (fp *FilePlacer) Place(filePath string, executable bool) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file does not exist: %s", filePath)
	}

	// Windows only knows the read-only bit
	if runtime.GOOS == "windows" {
		return nil
	}

	mode := regularMode
	if executable {
		mode = executableMode
	}
	if err := os.Chmod(filePath, mode); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", filePath, err)
	}
	fp.logger.Verbose("Set permissions to %04o for %s", mode, filePath)
	return nil
}
