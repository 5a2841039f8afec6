// Package tree walks a manifest and makes the filesystem match it.
//
// A single Processor handles both walk modes. Install fetches every file;
// Verify keeps files whose content already matches the manifest and fetches
// the rest. Nodes are processed one at a time, depth first, and every node
// produces exactly one progress tick.
package tree

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/dustin/go-humanize"

	"github.com/go-pistonlauncher/pkg/checksum"
	"github.com/go-pistonlauncher/pkg/decompress"
	"github.com/go-pistonlauncher/pkg/download"
	"github.com/go-pistonlauncher/pkg/manifest"
	"github.com/go-pistonlauncher/pkg/progress"
	"github.com/go-pistonlauncher/pkg/utils"
)

// Options tune file handling
type Options struct {
	// PreferRaw skips the LZMA variant even when the manifest offers one
	PreferRaw bool
}

// Processor applies a manifest tree to a directory
type Processor struct {
	fetcher      download.Fetcher
	decompressor *decompress.Decompressor
	placer       *FilePlacer
	tracker      *progress.Tracker
	logger       *utils.Logger
	opts         Options
}

// NewProcessor creates a processor. A nil tracker counts nothing.
func NewProcessor(fetcher download.Fetcher, decompressor *decompress.Decompressor, tracker *progress.Tracker, logger *utils.Logger, opts Options) *Processor {
	if tracker == nil {
		tracker = progress.NewTracker(nil)
	}
	if decompressor == nil {
		decompressor = decompress.New(0, logger)
	}
	return &Processor{
		fetcher:      fetcher,
		decompressor: decompressor,
		placer:       NewFilePlacer(logger),
		tracker:      tracker,
		logger:       logger,
		opts:         opts,
	}
}

// Process walks the children of root into base. The caller sets the tracker
// total beforehand (manifest.Count(root)).
//
// Per-file problems are recorded in the Summary and do not stop the walk. The
// returned error is fatal: a directory that cannot be created or a cancelled
// context. The Summary is returned in both cases.
func (p *Processor) Process(ctx context.Context, root *manifest.Node, base string, mode Mode) (*Summary, error) {
	summary := &Summary{Mode: mode}
	if root == nil {
		return summary, nil
	}

	if err := utils.EnsureDir(base); err != nil {
		return summary, &FilesystemError{Op: "mkdir", Path: base, Fatal: true, Err: err}
	}

	w := &walk{Processor: p, ctx: ctx, base: base, mode: mode, summary: summary}
	err := w.children(root, "")
	return summary, err
}

// walk holds the state of one Process call
type walk struct {
	*Processor
	ctx     context.Context
	base    string
	mode    Mode
	summary *Summary
}

func (w *walk) children(dir *manifest.Node, rel string) error {
	for _, child := range dir.Children {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		if err := w.node(child, path.Join(rel, child.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) node(n *manifest.Node, rel string) error {
	switch {
	case n.IsDirectory():
		return w.directory(n, rel)
	case n.IsFile():
		outcome, err := w.file(n, rel)
		if err != nil {
			return err
		}
		w.summary.add(outcome)
		w.tracker.Tick()
		return nil
	default:
		w.logger.Debug("Ignoring %s: unknown type %q", rel, n.Type)
		w.summary.add(Outcome{Path: rel, Action: ActionSkipped, Reason: fmt.Sprintf("unknown type %q", n.Type)})
		w.tracker.Tick()
		return nil
	}
}

func (w *walk) directory(n *manifest.Node, rel string) error {
	dirPath, err := utils.JoinWithin(w.base, rel)
	if err != nil {
		w.logger.Error("Rejecting directory %s: %v", rel, err)
		w.summary.add(Outcome{Path: rel, Action: ActionFailed, Err: err})
		w.tracker.Tick()
		// Nothing below a rejected directory is visited, but it still counts
		for i := uint64(0); i < manifest.Count(n); i++ {
			w.tracker.Tick()
		}
		return nil
	}

	w.logger.Verbose("MKDIR %s", dirPath)
	if err := utils.EnsureDir(dirPath); err != nil {
		return &FilesystemError{Op: "mkdir", Path: dirPath, Fatal: true, Err: err}
	}
	w.summary.add(Outcome{Path: rel, Action: ActionCreated})
	w.tracker.Tick()

	return w.children(n, rel)
}

// file handles one file node. A non-nil error is fatal for the walk.
func (w *walk) file(n *manifest.Node, rel string) (Outcome, error) {
	outcome := Outcome{Path: rel}

	if n.Downloads.Empty() {
		w.logger.Debug("Skipping %s: no download variant", rel)
		outcome.Action, outcome.Reason = ActionSkipped, "no download variant"
		return outcome, nil
	}
	if n.Name == "" {
		outcome.Action = ActionFailed
		outcome.Err = &FilesystemError{Op: "place", Path: rel, Err: errors.New("empty file name")}
		w.logger.Error("Skipping file in %s: empty name", rel)
		return outcome, nil
	}

	filePath, err := utils.JoinWithin(w.base, rel)
	if err != nil {
		w.logger.Error("Rejecting file %s: %v", rel, err)
		outcome.Action, outcome.Err = ActionFailed, err
		return outcome, nil
	}

	action := ActionInstalled
	if w.mode == Verify {
		done, err := w.verifyExisting(n, rel, filePath, &outcome)
		if done || err != nil {
			return outcome, err
		}
		action = ActionRepaired
	}

	variant, encoding := n.Downloads.Select(w.opts.PreferRaw)
	if variant == nil {
		outcome.Action, outcome.Reason = ActionSkipped, "no applicable download variant"
		w.logger.Debug("Skipping %s: %s", rel, outcome.Reason)
		return outcome, nil
	}

	written, err := w.install(n, filePath, variant, encoding)
	outcome.Bytes = written
	if err != nil {
		if ctxErr := w.ctx.Err(); ctxErr != nil {
			return outcome, ctxErr
		}
		var fsErr *FilesystemError
		if errors.As(err, &fsErr) && fsErr.Fatal {
			return outcome, err
		}
		w.logger.Error("❌ %s: %v", rel, err)
		outcome.Action, outcome.Err = ActionFailed, err
		return outcome, nil
	}

	outcome.Action = action
	return outcome, nil
}

// verifyExisting checks a file already on disk against the raw hash, which
// is the hash of the decompressed form. done is true when nothing needs fetching.
func (w *walk) verifyExisting(n *manifest.Node, rel, filePath string, outcome *Outcome) (done bool, err error) {
	if !utils.FileExists(filePath) {
		w.logger.Info("MISSING %s", filePath)
		return false, nil
	}

	raw := n.Downloads.Raw
	if raw == nil || raw.SHA1 == "" {
		w.logger.Debug("Keeping %s: no reference hash", rel)
		outcome.Action, outcome.Reason = ActionSkipped, "no reference hash"
		return true, nil
	}

	ok, err := checksum.Matches(filePath, raw.SHA1)
	if err != nil {
		w.logger.Warn("Could not hash %s, fetching again: %v", filePath, err)
		return false, nil
	}
	if ok {
		w.logger.Verbose("SHA1 %s OK", filePath)
		outcome.Action = ActionVerified
		return true, nil
	}

	w.logger.Info("SHA1 %s BAD", filePath)
	return false, nil
}

// install fetches variant to filePath, checks it and decompresses it when needed.
// The file is removed whenever a hash check fails.
func (w *walk) install(n *manifest.Node, filePath string, variant *manifest.Variant, encoding manifest.Encoding) (int64, error) {
	if err := utils.EnsureDirForFile(filePath); err != nil {
		return 0, &FilesystemError{Op: "mkdir", Path: filePath, Err: err}
	}

	written, err := w.fetcher.Fetch(w.ctx, variant.URL, filePath)
	if err != nil {
		return written, err
	}
	if variant.Size > 0 && written != variant.Size {
		w.logger.Warn("%s: expected %s, received %s", filePath, humanize.IBytes(uint64(variant.Size)), humanize.IBytes(uint64(written)))
	}

	if variant.SHA1 != "" {
		if err := w.checkHash(filePath, variant.SHA1); err != nil {
			return written, err
		}
	}

	if encoding == manifest.EncodingLZMA {
		if err := w.decompressor.InPlace(filePath); err != nil {
			return written, err
		}
		w.logger.Verbose("LZMA %s OK", filePath)

		if raw := n.Downloads.Raw; raw != nil && raw.SHA1 != "" {
			if err := w.checkHash(filePath, raw.SHA1); err != nil {
				return written, err
			}
		}
	}

	if err := w.placer.Place(filePath, n.Executable); err != nil {
		return written, &FilesystemError{Op: "chmod", Path: filePath, Err: err}
	}
	return written, nil
}

func (w *walk) checkHash(filePath, expected string) error {
	err := checksum.Verify(filePath, expected)
	if err == nil {
		w.logger.Verbose("SHA1 %s OK", filePath)
		return nil
	}

	var mismatch *checksum.MismatchError
	if errors.As(err, &mismatch) {
		w.logger.Info("SHA1 %s BAD", filePath)
	}
	if rmErr := utils.RemoveIfExists(filePath); rmErr != nil {
		w.logger.Error("Failed to remove %s: %v", filePath, rmErr)
	}
	return err
}
