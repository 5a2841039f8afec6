package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-pistonlauncher/pkg/marker"
	"github.com/go-pistonlauncher/pkg/progress"
	"github.com/go-pistonlauncher/pkg/tree"
)

// UninstallEngine deletes an installation: the version marker, other files,
// then directories deepest first, the root last.
type UninstallEngine struct {
	machine
	opts Options
}

// NewUninstallEngine creates an idle uninstall engine
func NewUninstallEngine(opts Options) *UninstallEngine {
	return &UninstallEngine{opts: opts}
}

// Run deletes everything under Root and Root itself. Entries that are already
// gone are skipped. A failed delete is fatal and is not retried.
func (e *UninstallEngine) Run(ctx context.Context) (*Result, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}

	opts := &e.opts
	tracker := progress.NewTracker(opts.Reporter)
	result := &Result{Operation: "uninstall", Root: opts.Root, Started: time.Now()}
	logger := opts.Logger

	if _, err := os.Lstat(opts.Root); errors.Is(err, fs.ErrNotExist) {
		logger.Info("Nothing to uninstall: %s does not exist", opts.Root)
		tracker.SetTotal(0)
		return finish(&e.machine, opts, tracker, result, nil)
	}

	logger.Info("=== Uninstalling %s ===", opts.Root)
	entries, err := collect(opts.Root)
	if err != nil {
		return finish(&e.machine, opts, tracker, result, err)
	}
	tracker.SetTotal(uint64(len(entries)))

	for _, path := range entries {
		if err := ctx.Err(); err != nil {
			return finish(&e.machine, opts, tracker, result, err)
		}
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return finish(&e.machine, opts, tracker, result, &tree.FilesystemError{Op: "remove", Path: path, Fatal: true, Err: err})
			}
			logger.Debug("Already gone: %s", path)
		} else {
			result.Removed++
			logger.Verbose("Deleted %s", path)
		}
		tracker.Tick()
	}

	logger.Info("Removed %d entries", result.Removed)
	return finish(&e.machine, opts, tracker, result, nil)
}

type entry struct {
	path   string
	dir    bool
	marker bool
	depth  int
}

// collect returns the deletion order: the version marker, other
// non-directories, then directories deepest first, root last. Removing the
// marker first means an interrupted uninstall no longer reads as installed.
func collect(root string) ([]string, error) {
	markerPath := marker.Path(root)
	var entries []entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return &tree.FilesystemError{Op: "walk", Path: path, Fatal: true, Err: err}
		}
		if path == root {
			return nil
		}
		entries = append(entries, entry{
			path:   path,
			dir:    d.IsDir(),
			marker: path == markerPath,
			depth: strings.Count(filepath.ToSlash(strings.TrimPrefix(path, root)), "/"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.marker != b.marker {
			return a.marker
		}
		if a.dir != b.dir {
			return !a.dir
		}
		if a.dir {
			return a.depth > b.depth
		}
		return false
	})

	order := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		order = append(order, e.path)
	}
	return append(order, root), nil
}
