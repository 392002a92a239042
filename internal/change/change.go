// Package change turns raw filesystem notifications into logical changes.
//
// A single save in a desktop editor commonly produces a burst of create,
// write, chmod and rename notifications, often through a temporary file.
// The Classifier collapses those into at most one Event per logical change,
// and the Set keeps the deduplicated pending changes the scheduler decides
// on.
package change

import (
	"time"
)

// Kind is the logical kind of a change.
type Kind int

const (
	// Added indicates a new file appeared under the watched root.
	Added Kind = iota + 1
	// Modified indicates an existing file's content changed.
	Modified
	// Renamed indicates a file was moved to a new name.
	Renamed
	// Deleted indicates a file was removed.
	Deleted
)

// String returns the label used in status lines.
func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Renamed:
		return "renamed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is a classified, de-noised change.
type Event struct {
	// Path is the absolute path of the affected file. For renames it is the
	// destination.
	Path string
	// Kind is the logical change kind.
	Kind Kind
}

// PendingChange is a change waiting to be synced.
type PendingChange struct {
	Path       string
	Kind       Kind
	ObservedAt time.Time
}

// Tracker is the view of the pending set the classifier needs: what is
// pending for a path, and a way to mark a suppressed write as fresh.
type Tracker interface {
	Get(path string) (PendingChange, bool)
	Touch(path string, now time.Time) bool
}
