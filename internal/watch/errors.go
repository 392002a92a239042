package watch

import "fmt"

// Error describes a failure to watch part of the tree.
type Error struct {
	// Path is the file or directory involved
	Path string
	// Op is what the watcher was doing: "resolve", "walk", "add" or "watch"
	Op string
	// Err is the underlying error
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("watch %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
