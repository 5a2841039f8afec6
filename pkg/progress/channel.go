package progress

import (
	"sync"
	"sync/atomic"
)

// EventKind identifies a progress event
type EventKind int

const (
	EventTotal EventKind = iota
	EventTick
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventTotal:
		return "total"
	case EventTick:
		return "tick"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is one message from the worker to the consumer
type Event struct {
	Kind      EventKind
	Completed uint64
	Total     uint64
	Result    *Result // set for EventFinished
}

// ChannelReporter turns reporter calls into events on a channel, so the
// consumer only ever reads messages and never shares state with the worker.
//
// Total and finished events are always delivered. Tick events are dropped
// when the buffer is full; the next delivered tick carries the latest counts.
// The channel is closed after the finished event. All methods are meant to
// be called from the single worker goroutine.
type ChannelReporter struct {
	events chan Event
	once   sync.Once
	closed atomic.Bool
}

// NewChannelReporter creates a reporter with the given buffer size
func NewChannelReporter(buffer int) *ChannelReporter {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelReporter{events: make(chan Event, buffer)}
}

// Events returns the receive side of the channel
func (c *ChannelReporter) Events() <-chan Event {
	return c.events
}

func (c *ChannelReporter) OnTotalKnown(total uint64) {
	if c.closed.Load() {
		return
	}
	c.events <- Event{Kind: EventTotal, Total: total}
}

func (c *ChannelReporter) OnTick(completed, total uint64) {
	if c.closed.Load() {
		return
	}
	select {
	case c.events <- Event{Kind: EventTick, Completed: completed, Total: total}:
	default:
	}
}

func (c *ChannelReporter) OnFinished(result Result) {
	c.once.Do(func() {
		c.events <- Event{Kind: EventFinished, Completed: result.Completed, Total: result.Total, Result: &result}
		c.closed.Store(true)
		close(c.events)
	})
}

// Func adapts a callback to Reporter; handy for tests and simple consumers
type Func func(Event)

func (f Func) OnTotalKnown(total uint64) { f(Event{Kind: EventTotal, Total: total}) }

func (f Func) OnTick(completed, total uint64) {
	f(Event{Kind: EventTick, Completed: completed, Total: total})
}

func (f Func) OnFinished(result Result) {
	f(Event{Kind: EventFinished, Completed: result.Completed, Total: result.Total, Result: &result})
}
