package change

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/autogitsync/agsync/internal/watch"
)

// DefaultRenameArmTimeout bounds how long a placeholder create may hold
// back syncing while waiting for the rename that names it.
const DefaultRenameArmTimeout = 30 * time.Second

// ignoredNames are OS and VCS artifacts that never count as content.
var ignoredNames = map[string]bool{
	".git":        true,
	"index.lock":  true,
	".DS_Store":   true,
	"Thumbs.db":   true,
	"desktop.ini": true,
}

// IsIgnored reports whether path is a VCS-internal or OS artifact.
func IsIgnored(path string) bool {
	base := filepath.Base(path)
	if ignoredNames[base] {
		return true
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}

// IsTemp reports whether path looks like an editor or office temp file, or
// a "New ..." placeholder created by a file manager.
func IsTemp(path string) bool {
	name := filepath.Base(path)

	switch {
	case strings.EqualFold(filepath.Ext(name), ".tmp"):
		return true
	case strings.HasPrefix(name, "~"):
		return true
	case strings.Contains(name, "~RF"), strings.Contains(name, "~WRL"):
		// Office atomic-save files
		return true
	case strings.HasPrefix(name, ".~lock."):
		return true
	case strings.HasPrefix(name, "New "):
		// "New Text Document.txt", "New Microsoft Word Document.docx", ...
		return true
	case strings.HasSuffix(name, "~"),
		strings.HasSuffix(name, ".swp"),
		strings.HasSuffix(name, ".swx"),
		name == "4913":
		// vim backup, swap and write-probe files
		return true
	case strings.HasPrefix(name, ".goutputstream-"):
		return true
	}
	return false
}

// Classifier maps raw notifications to logical changes.
//
// It carries one piece of state: whether a placeholder or temp file was
// just created and the rename that gives it its real name is expected next
// ("rename armed"). A Classifier is not safe for concurrent use; the daemon
// loop is its only caller.
type Classifier struct {
	armed      bool
	armedPath  string
	armedAt    time.Time
	armTimeout time.Duration
}

// NewClassifier creates a classifier. A non-positive armTimeout uses
// DefaultRenameArmTimeout.
func NewClassifier(armTimeout time.Duration) *Classifier {
	if armTimeout <= 0 {
		armTimeout = DefaultRenameArmTimeout
	}
	return &Classifier{armTimeout: armTimeout}
}

// Armed reports whether a placeholder rename is outstanding. An arm older
// than the timeout is dropped.
func (c *Classifier) Armed(now time.Time) bool {
	if c.armed && now.Sub(c.armedAt) >= c.armTimeout {
		c.disarm()
	}
	return c.armed
}

// Classify converts a raw event. The second result is false when the event
// is noise or was folded into an existing pending record. A repeated
// modification of a path already pending is not reported again, but it
// touches the record so the debounce window and the post-sync clear see
// the latest write.
func (c *Classifier) Classify(raw watch.RawEvent, pending Tracker, now time.Time) (Event, bool) {
	if len(raw.Paths) == 0 {
		return Event{}, false
	}
	for _, p := range raw.Paths {
		if IsIgnored(p) {
			return Event{}, false
		}
	}

	switch raw.Op {
	case watch.OpRename:
		return c.rename(raw, now)

	case watch.OpCreate:
		path := raw.Path()
		if raw.IsDir {
			return Event{}, false
		}
		if IsTemp(path) {
			c.arm(path, now)
			return Event{}, false
		}
		c.disarm()
		return Event{Path: path, Kind: Added}, true

	case watch.OpModify:
		path := raw.Path()
		if raw.IsDir || IsTemp(path) {
			return Event{}, false
		}
		c.disarm()
		if prev, ok := pending.Get(path); ok && (prev.Kind == Modified || prev.Kind == Added) {
			pending.Touch(path, now)
			return Event{}, false
		}
		return Event{Path: path, Kind: Modified}, true

	case watch.OpDelete:
		path := raw.Path()
		if IsTemp(path) {
			return Event{}, false
		}
		c.disarm()
		return Event{Path: path, Kind: Deleted}, true
	}

	return Event{}, false
}

// rename resolves a rename. A rename that follows a placeholder create is
// the user naming a new file, so it is reported as a single Added. Any
// other rename is reported as Renamed, even when the new name looks
// temporary: the old name is gone either way.
func (c *Classifier) rename(raw watch.RawEvent, now time.Time) (Event, bool) {
	dst := raw.Dest()

	if IsTemp(dst) && c.armed {
		// Placeholder renamed to another placeholder; keep waiting
		c.arm(dst, now)
		return Event{}, false
	}

	if c.armed {
		c.disarm()
		return Event{Path: dst, Kind: Added}, true
	}
	return Event{Path: dst, Kind: Renamed}, true
}

func (c *Classifier) arm(path string, now time.Time) {
	c.armed = true
	c.armedPath = path
	c.armedAt = now
}

func (c *Classifier) disarm() {
	c.armed = false
	c.armedPath = ""
	c.armedAt = time.Time{}
}
