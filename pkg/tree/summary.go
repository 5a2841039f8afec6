package tree

import (
	"fmt"
	"sort"
)

// Mode selects how file nodes are handled
type Mode int

const (
	// Install downloads every file
	Install Mode = iota
	// Verify only downloads files that are missing or fail their hash check
	Verify
)

func (m Mode) String() string {
	switch m {
	case Install:
		return "install"
	case Verify:
		return "verify"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Action is what happened to one node
type Action string

const (
	ActionCreated   Action = "created"   // directory ensured
	ActionInstalled Action = "installed" // file downloaded in Install mode
	ActionVerified  Action = "verified"  // existing file matched its hash
	ActionRepaired  Action = "repaired"  // missing or corrupt file downloaded in Verify mode
	ActionSkipped   Action = "skipped"
	ActionFailed    Action = "failed"
)

// Outcome records the result for one manifest node
type Outcome struct {
	Path   string // slash-separated, relative to the install root
	Action Action
	Reason string // why a node was skipped
	Bytes  int64  // bytes downloaded
	Err    error
}

// Summary collects outcomes of a walk
type Summary struct {
	Mode     Mode
	Outcomes []Outcome
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// Count returns how many outcomes have the given action
func (s *Summary) Count(action Action) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Action == action {
			n++
		}
	}
	return n
}

// Failures returns the failed outcomes in walk order
func (s *Summary) Failures() []Outcome {
	var failed []Outcome
	for _, o := range s.Outcomes {
		if o.Action == ActionFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// FailedPaths returns the sorted paths of failed outcomes
func (s *Summary) FailedPaths() []string {
	var paths []string
	for _, o := range s.Failures() {
		paths = append(paths, o.Path)
	}
	sort.Strings(paths)
	return paths
}

// Problems is the number of per-file failures
func (s *Summary) Problems() int {
	return s.Count(ActionFailed)
}

// Downloaded returns the number of files fetched and the bytes transferred
func (s *Summary) Downloaded() (files int, bytes int64) {
	for _, o := range s.Outcomes {
		if o.Action == ActionInstalled || o.Action == ActionRepaired {
			files++
		}
		bytes += o.Bytes
	}
	return files, bytes
}

// Lookup returns the outcome recorded for path
func (s *Summary) Lookup(path string) (Outcome, bool) {
	for _, o := range s.Outcomes {
		if o.Path == path {
			return o, true
		}
	}
	return Outcome{}, false
}
