// Package engine orchestrates install, verify and uninstall runs. Each engine
// is a small state machine (Idle, Running, then Succeeded or Failed) that
// reports progress through a progress.Reporter and never touches UI state.
package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-pistonlauncher/pkg/decompress"
	"github.com/go-pistonlauncher/pkg/download"
	"github.com/go-pistonlauncher/pkg/manifest"
	"github.com/go-pistonlauncher/pkg/marker"
	"github.com/go-pistonlauncher/pkg/progress"
	"github.com/go-pistonlauncher/pkg/tree"
	"github.com/go-pistonlauncher/pkg/utils"
)

// ErrBusy is returned by Run while the engine is already running
var ErrBusy = errors.New("operation already running")

// State of an engine
type State int32

const (
	Idle State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options wires an engine to its collaborators. Only the fields an engine
// needs are read: uninstall ignores Source, Fetcher and Decompressor.
type Options struct {
	Root         string
	Source       manifest.Source
	Fetcher      download.Fetcher
	Decompressor *decompress.Decompressor
	Tree         tree.Options
	Reporter     progress.Reporter
	Journal      *marker.Journal // optional
	Logger       *utils.Logger
}

// Result describes a finished run
type Result struct {
	Operation string
	Version   string
	Root      string
	Summary   *tree.Summary // install and verify
	Removed   int           // uninstall
	Completed uint64
	Total     uint64
	Started   time.Time
	Duration  time.Duration
}

// Problems is the number of per-file failures
func (r *Result) Problems() int {
	if r == nil || r.Summary == nil {
		return 0
	}
	return r.Summary.Problems()
}

// machine implements the shared state transitions
type machine struct {
	state atomic.Int32
}

// State returns the current state; safe from any goroutine
func (m *machine) State() State {
	return State(m.state.Load())
}

func (m *machine) begin() error {
	for {
		current := m.state.Load()
		if State(current) == Running {
			return ErrBusy
		}
		if m.state.CompareAndSwap(current, int32(Running)) {
			return nil
		}
	}
}

func (m *machine) end(err error) {
	if err != nil {
		m.state.Store(int32(Failed))
		return
	}
	m.state.Store(int32(Succeeded))
}

// finish closes out a run: counts, journal, reporter, state
func finish(m *machine, opts *Options, tracker *progress.Tracker, result *Result, err error) (*Result, error) {
	result.Duration = time.Since(result.Started)
	result.Completed, result.Total = tracker.Snapshot()

	if opts.Journal != nil {
		entry := marker.Entry{
			Operation: result.Operation,
			Version:   result.Version,
			Root:      result.Root,
			Completed: result.Completed,
			Total:     result.Total,
			Problems:  result.Problems(),
			Started:   result.Started,
			Finished:  result.Started.Add(result.Duration),
		}
		if result.Summary != nil {
			entry.Failed = result.Summary.FailedPaths()
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if jErr := opts.Journal.Record(entry); jErr != nil {
			opts.Logger.Warn("Failed to record %s in journal: %v", result.Operation, jErr)
		}
	}

	tracker.Finish(progress.Result{
		Operation: result.Operation,
		Version:   result.Version,
		Problems:  result.Problems(),
		Err:       err,
		Duration:  result.Duration,
	})
	m.end(err)
	return result, err
}
