package change

import (
	"sort"
	"time"
)

// DefaultDebounce is the quiet period after the last event before a sync
// may be considered.
const DefaultDebounce = 2 * time.Second

// Set is the pending-change aggregator: at most one record per path, last
// write wins. It also tracks when the last event arrived and whether a real
// addition should bypass the sync interval.
//
// A Set is not safe for concurrent use.
type Set struct {
	items       map[string]PendingChange
	lastEventAt time.Time
	force       bool
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{items: make(map[string]PendingChange)}
}

// Record inserts or overwrites the pending record for ev.Path.
// Added changes request a forced sync.
func (s *Set) Record(ev Event, now time.Time) {
	s.items[ev.Path] = PendingChange{
		Path:       ev.Path,
		Kind:       ev.Kind,
		ObservedAt: now,
	}
	s.lastEventAt = now

	if ev.Kind == Added {
		s.force = true
	}
}

// Touch marks the pending record for path as observed at now without
// changing its kind, and restarts the quiet period. It reports whether a
// record existed.
func (s *Set) Touch(path string, now time.Time) bool {
	pc, ok := s.items[path]
	if !ok {
		return false
	}
	pc.ObservedAt = now
	s.items[path] = pc
	s.lastEventAt = now
	return true
}

// Get implements Tracker.
func (s *Set) Get(path string) (PendingChange, bool) {
	pc, ok := s.items[path]
	return pc, ok
}

// Len returns the number of pending records.
func (s *Set) Len() int {
	return len(s.items)
}

// Empty reports whether nothing is pending.
func (s *Set) Empty() bool {
	return len(s.items) == 0
}

// LastEventAt returns when the most recent change was recorded.
func (s *Set) LastEventAt() time.Time {
	return s.lastEventAt
}

// Quiet reports whether at least window has passed since the last event.
func (s *Set) Quiet(now time.Time, window time.Duration) bool {
	return now.Sub(s.lastEventAt) >= window
}

// Force reports whether an addition asked for an immediate sync.
func (s *Set) Force() bool {
	return s.force
}

// ClearForce drops a pending force request.
func (s *Set) ClearForce() {
	s.force = false
}

// ClearThrough removes every record observed at or before t and returns how
// many were removed. Records observed later survive, and the force flag is
// kept only if one of them is an addition.
func (s *Set) ClearThrough(t time.Time) int {
	removed := 0
	s.force = false

	for path, pc := range s.items {
		if !pc.ObservedAt.After(t) {
			delete(s.items, path)
			removed++
			continue
		}
		if pc.Kind == Added {
			s.force = true
		}
	}

	return removed
}

// Snapshot returns the pending records sorted by path.
func (s *Set) Snapshot() []PendingChange {
	out := make([]PendingChange, 0, len(s.items))
	for _, pc := range s.items {
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
