package tree

import "fmt"

// FilesystemError reports a filesystem operation that failed during a walk.
// Fatal errors stop the walk: the target tree is not writable.
type FilesystemError struct {
	Op    string
	Path  string
	Fatal bool
	Err   error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }
