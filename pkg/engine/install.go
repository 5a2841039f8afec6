package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/go-pistonlauncher/pkg/manifest"
	"github.com/go-pistonlauncher/pkg/marker"
	"github.com/go-pistonlauncher/pkg/progress"
	"github.com/go-pistonlauncher/pkg/tree"
)

// InstallEngine downloads the current release into Root and writes the version marker
type InstallEngine struct {
	machine
	opts Options
}

// NewInstallEngine creates an idle install engine
func NewInstallEngine(opts Options) *InstallEngine {
	return &InstallEngine{opts: opts}
}

// Run resolves the release, walks it in Install mode and writes the marker.
// Per-file problems are in Result.Summary; the error is fatal only.
func (e *InstallEngine) Run(ctx context.Context) (*Result, error) {
	return walkRelease(ctx, &e.machine, &e.opts, tree.Install)
}

// VerifyEngine re-checks an installation and repairs missing or corrupt files.
// It never writes the version marker.
type VerifyEngine struct {
	machine
	opts Options
}

// NewVerifyEngine creates an idle verify engine
func NewVerifyEngine(opts Options) *VerifyEngine {
	return &VerifyEngine{opts: opts}
}

func (e *VerifyEngine) Run(ctx context.Context) (*Result, error) {
	return walkRelease(ctx, &e.machine, &e.opts, tree.Verify)
}

func walkRelease(ctx context.Context, m *machine, opts *Options, mode tree.Mode) (*Result, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	if opts.Source == nil || opts.Fetcher == nil {
		m.end(errors.New("engine not configured"))
		return nil, fmt.Errorf("%s: manifest source and fetcher are required", mode)
	}

	tracker := progress.NewTracker(opts.Reporter)
	result := &Result{Operation: mode.String(), Root: opts.Root, Started: time.Now()}
	logger := opts.Logger

	logger.Info("=== Starting %s into %s ===", mode, opts.Root)

	release, err := opts.Source.Resolve(ctx)
	if err != nil {
		return finish(m, opts, tracker, result, err)
	}
	result.Version = release.Version
	if mode == tree.Verify {
		if installed, err := marker.Read(opts.Root); err == nil && installed != "" {
			result.Version = installed
			if installed != release.Version {
				logger.Warn("Installed version %s differs from manifest version %s", installed, release.Version)
			}
		}
	}

	total := manifest.Count(release.Root)
	logger.Debug("Manifest %s lists %d entries (%d files)", release.ManifestURL, total, manifest.Files(release.Root))
	tracker.SetTotal(total)

	processor := tree.NewProcessor(opts.Fetcher, opts.Decompressor, tracker, logger, opts.Tree)
	summary, err := processor.Process(ctx, release.Root, opts.Root, mode)
	result.Summary = summary
	if err != nil {
		return finish(m, opts, tracker, result, err)
	}

	files, bytes := summary.Downloaded()
	logger.Info("Downloaded %d file(s), %s", files, humanize.IBytes(uint64(bytes)))
	if problems := summary.Problems(); problems > 0 {
		logger.Warn("%d file(s) could not be installed; run verify to retry", problems)
	}

	if mode == tree.Install {
		if err := marker.Write(opts.Root, release.Version); err != nil {
			return finish(m, opts, tracker, result, &tree.FilesystemError{Op: "write", Path: marker.Path(opts.Root), Fatal: true, Err: err})
		}
		logger.Info("✅ Installed %s %s", release.Product, release.Version)
	}

	return finish(m, opts, tracker, result, nil)
}
