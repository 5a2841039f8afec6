package marker

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// JournalFileName is stored in the settings directory, outside the install root
const JournalFileName = "last-run.json"

// Entry describes the most recent install, verify or uninstall
type Entry struct {
	Operation string    `json:"operation"`
	Version   string    `json:"version,omitempty"`
	Root      string    `json:"root"`
	Completed uint64    `json:"completed"`
	Total     uint64    `json:"total"`
	Problems  int       `json:"problems"`
	Failed    []string  `json:"failed,omitempty"`
	Error     string    `json:"error,omitempty"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	Runs      int       `json:"runs"`
}

// Journal persists the last Entry as JSON
type Journal struct {
	Path string
}

// NewJournal places the journal in dir
func NewJournal(dir string) *Journal {
	return &Journal{Path: filepath.Join(dir, JournalFileName)}
}

// Last returns the stored entry, or nil when nothing has run yet
func (j *Journal) Last() (*Entry, error) {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Record replaces the stored entry. Runs counts consecutive entries for the
// same operation and root, so repeated failed verifies are visible.
func (j *Journal) Record(entry Entry) error {
	entry.Runs = 1
	if prev, err := j.Last(); err == nil && prev != nil &&
		prev.Operation == entry.Operation && prev.Root == entry.Root {
		entry.Runs = prev.Runs + 1
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(j.Path), 0o755); err != nil {
		return err
	}
	tmp := j.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, j.Path)
}
