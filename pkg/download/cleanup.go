package download

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-pistonlauncher/pkg/utils"
)

// CleanupTracker keeps track of download destinations that did not complete
type CleanupTracker struct {
	mutex sync.Mutex
	files map[string]struct{} // destinations that have not completed
}

// NewCleanupTracker creates a new cleanup tracker
func NewCleanupTracker() *CleanupTracker {
	return &CleanupTracker{
		files: make(map[string]struct{}),
	}
}

// TrackFile marks a destination as in flight; it counts as failed until MarkSuccess
func (ct *CleanupTracker) TrackFile(filepath string) {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()
	ct.files[filepath] = struct{}{}
}

// MarkSuccess marks a destination as complete and stops tracking it
func (ct *CleanupTracker) MarkSuccess(filepath string) {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()
	delete(ct.files, filepath)
}

// Release deletes a failed destination right away and stops tracking it
func (ct *CleanupTracker) Release(filepath string) error {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()

	if _, ok := ct.files[filepath]; !ok {
		return nil
	}
	delete(ct.files, filepath)
	if err := utils.RemoveIfExists(filepath); err != nil {
		return fmt.Errorf("failed to cleanup %s: %w", filepath, err)
	}
	return nil
}

// Failed lists destinations that never completed, sorted
func (ct *CleanupTracker) Failed() []string {
	ct.mutex.Lock()
	defer ct.mutex.Unlock()

	out := make([]string, 0, len(ct.files))
	for path := range ct.files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
