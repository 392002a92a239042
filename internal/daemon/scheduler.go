package daemon

import (
	"time"

	"github.com/autogitsync/agsync/internal/change"
	"github.com/autogitsync/agsync/internal/watch"
)

// State is the scheduler state.
type State int

const (
	// StateIdle means nothing is pending and no sync is running.
	StateIdle State = iota
	// StateDebouncing means changes are pending and waiting out the
	// debounce window or the sync interval.
	StateDebouncing
	// StateSyncing means a sync attempt is in flight.
	StateSyncing
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateSyncing:
		return "syncing"
	default:
		return "unknown"
	}
}

// Scheduler decides when a sync attempt is due. It owns the pending set and
// the classifier, and is driven entirely by the times passed in, so it has
// no clock of its own.
//
// A Scheduler is not safe for concurrent use.
type Scheduler struct {
	state      State
	pending    *change.Set
	classifier *change.Classifier

	debounce time.Duration
	interval time.Duration

	lastSyncAt    time.Time
	syncStartedAt time.Time
}

// NewScheduler creates an idle scheduler.
func NewScheduler(debounce, interval time.Duration, classifier *change.Classifier) *Scheduler {
	if classifier == nil {
		classifier = change.NewClassifier(0)
	}
	return &Scheduler{
		state:      StateIdle,
		pending:    change.NewSet(),
		classifier: classifier,
		debounce:   debounce,
		interval:   interval,
	}
}

// Observe classifies raw and records the result. The event is returned so
// it can be reported; ok is false for noise.
func (s *Scheduler) Observe(raw watch.RawEvent, now time.Time) (change.Event, bool) {
	ev, ok := s.classifier.Classify(raw, s.pending, now)
	if !ok {
		return change.Event{}, false
	}
	s.Record(ev, now)
	return ev, true
}

// Record adds an already classified change.
func (s *Scheduler) Record(ev change.Event, now time.Time) {
	s.pending.Record(ev, now)
	if s.state == StateIdle {
		s.state = StateDebouncing
	}
}

// Due reports whether a sync should start now.
func (s *Scheduler) Due(now time.Time) bool {
	if s.state != StateDebouncing || s.pending.Empty() {
		return false
	}
	if s.classifier.Armed(now) {
		return false
	}
	if !s.pending.Quiet(now, s.debounce) {
		return false
	}
	return s.pending.Force() || now.Sub(s.lastSyncAt) >= s.interval
}

// Begin moves to Syncing and returns the trigger and a snapshot of what is
// about to be synced. Callers must only Begin when Due, or for the
// shutdown flush.
func (s *Scheduler) Begin(now time.Time, flush bool) (Trigger, []change.PendingChange) {
	trigger := TriggerScheduled
	switch {
	case flush:
		trigger = TriggerFlush
	case s.pending.Force():
		trigger = TriggerForced
	}

	s.state = StateSyncing
	s.syncStartedAt = now
	return trigger, s.pending.Snapshot()
}

// Finish applies the result of the attempt started by Begin.
//
// A commit clears what was pending when the attempt began; changes recorded
// while it ran stay pending. An attempt that committed nothing or failed
// leaves the pending set alone but drops the force request, so the retry
// waits for the interval.
func (s *Scheduler) Finish(committed bool, now time.Time) {
	if committed {
		s.pending.ClearThrough(s.syncStartedAt)
	} else {
		s.pending.ClearForce()
	}
	s.lastSyncAt = now
	s.syncStartedAt = time.Time{}

	if s.pending.Empty() {
		s.state = StateIdle
	} else {
		s.state = StateDebouncing
	}
}

// State returns the current state.
func (s *Scheduler) State() State {
	return s.state
}

// Pending returns the number of pending changes.
func (s *Scheduler) Pending() int {
	return s.pending.Len()
}

// LastSyncAt returns when the last attempt finished.
func (s *Scheduler) LastSyncAt() time.Time {
	return s.lastSyncAt
}
