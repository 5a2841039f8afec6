// Package progress counts processed manifest nodes and forwards the counts to
// whatever is displaying them. The walk runs on its own goroutine; reporters
// must not touch UI state directly and should hand events off instead.
package progress

import (
	"sync/atomic"
	"time"
)

// Result is the final outcome handed to Reporter.OnFinished
type Result struct {
	Operation string // "install", "verify" or "uninstall"
	Version   string // installed version, when known
	Completed uint64
	Total     uint64
	Problems  int   // per-file failures that did not stop the walk
	Err       error // fatal error, nil on success
	Duration  time.Duration
}

// Succeeded reports whether the operation finished without a fatal error
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Reporter receives progress from the worker goroutine
type Reporter interface {
	OnTotalKnown(total uint64)
	OnTick(completed, total uint64)
	OnFinished(result Result)
}

// Tracker counts completed nodes against a total fixed before the walk
type Tracker struct {
	completed atomic.Uint64
	total     atomic.Uint64
	reporter  Reporter
}

// NewTracker creates a tracker; a nil reporter discards events
func NewTracker(reporter Reporter) *Tracker {
	if reporter == nil {
		reporter = Nop{}
	}
	return &Tracker{reporter: reporter}
}

// SetTotal resets the counter and announces the total
func (t *Tracker) SetTotal(n uint64) {
	t.completed.Store(0)
	t.total.Store(n)
	t.reporter.OnTotalKnown(n)
}

// Tick records one processed node
func (t *Tracker) Tick() {
	completed := t.completed.Add(1)
	t.reporter.OnTick(completed, t.total.Load())
}

// Snapshot returns the current counts; safe from any goroutine
func (t *Tracker) Snapshot() (completed, total uint64) {
	return t.completed.Load(), t.total.Load()
}

// Finish fills in the counts and forwards the result
func (t *Tracker) Finish(result Result) {
	result.Completed, result.Total = t.Snapshot()
	t.reporter.OnFinished(result)
}

// Nop discards all events
type Nop struct{}

func (Nop) OnTotalKnown(uint64)   {}
func (Nop) OnTick(uint64, uint64) {}
func (Nop) OnFinished(Result)     {}

// Multi fans events out to several reporters in order
type Multi []Reporter

func (m Multi) OnTotalKnown(total uint64) {
	for _, r := range m {
		r.OnTotalKnown(total)
	}
}

func (m Multi) OnTick(completed, total uint64) {
	for _, r := range m {
		r.OnTick(completed, total)
	}
}

func (m Multi) OnFinished(result Result) {
	for _, r := range m {
		r.OnFinished(result)
	}
}
