package change

import (
	"testing"
	"time"
)

func TestSet_LastWriteWins(t *testing.T) {
	s := NewSet()

	s.Record(Event{Path: "/r/a.txt", Kind: Added}, t0)
	s.Record(Event{Path: "/r/a.txt", Kind: Deleted}, t0.Add(time.Second))

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	pc, _ := s.Get("/r/a.txt")
	if pc.Kind != Deleted {
		t.Errorf("Kind = %v, want deleted", pc.Kind)
	}
	if !pc.ObservedAt.Equal(t0.Add(time.Second)) {
		t.Errorf("ObservedAt = %v, want latest", pc.ObservedAt)
	}
	if !s.LastEventAt().Equal(t0.Add(time.Second)) {
		t.Errorf("LastEventAt = %v", s.LastEventAt())
	}
}

func TestSet_ForceOnlyForAdded(t *testing.T) {
	s := NewSet()

	s.Record(Event{Path: "/r/a.txt", Kind: Modified}, t0)
	s.Record(Event{Path: "/r/b.txt", Kind: Deleted}, t0)
	s.Record(Event{Path: "/r/c.txt", Kind: Renamed}, t0)
	if s.Force() {
		t.Error("non-additions must not force a sync")
	}

	s.Record(Event{Path: "/r/d.txt", Kind: Added}, t0)
	if !s.Force() {
		t.Error("an addition should force a sync")
	}

	s.ClearForce()
	if s.Force() {
		t.Error("ClearForce() should reset the flag")
	}
}

func TestSet_Touch(t *testing.T) {
	s := NewSet()
	s.Record(Event{Path: "/r/a.txt", Kind: Added}, t0)

	later := t0.Add(3 * time.Second)
	if !s.Touch("/r/a.txt", later) {
		t.Fatal("Touch() on a pending path should report true")
	}
	pc, _ := s.Get("/r/a.txt")
	if pc.Kind != Added || !pc.ObservedAt.Equal(later) {
		t.Errorf("pending = %+v, want Added observed at %v", pc, later)
	}
	if !s.LastEventAt().Equal(later) {
		t.Errorf("LastEventAt() = %v, want %v", s.LastEventAt(), later)
	}

	if s.Touch("/r/missing.txt", later.Add(time.Second)) {
		t.Error("Touch() on an unknown path should report false")
	}
	if s.Len() != 1 || !s.LastEventAt().Equal(later) {
		t.Error("Touch() on an unknown path must not change the set")
	}

	// A touched record survives a clear taken before the touch
	if n := s.ClearThrough(t0.Add(time.Second)); n != 0 {
		t.Errorf("ClearThrough() removed %d, want 0", n)
	}
}

func TestSet_Quiet(t *testing.T) {
	s := NewSet()
	s.Record(Event{Path: "/r/a.txt", Kind: Modified}, t0)

	if s.Quiet(t0.Add(1999*time.Millisecond), 2*time.Second) {
		t.Error("should not be quiet before the window")
	}
	if !s.Quiet(t0.Add(2*time.Second), 2*time.Second) {
		t.Error("should be quiet once the window elapses")
	}
}

// TestSet_ClearThroughKeepsLateArrivals verifies that changes observed
// after a sync began survive its completion.
func TestSet_ClearThroughKeepsLateArrivals(t *testing.T) {
	s := NewSet()
	start := t0.Add(time.Second)

	s.Record(Event{Path: "/r/early.txt", Kind: Added}, t0)
	s.Record(Event{Path: "/r/edge.txt", Kind: Modified}, start)
	s.Record(Event{Path: "/r/late.txt", Kind: Modified}, start.Add(time.Millisecond))

	if n := s.ClearThrough(start); n != 2 {
		t.Errorf("ClearThrough() removed %d, want 2", n)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if _, ok := s.Get("/r/late.txt"); !ok {
		t.Error("late change should survive")
	}
	if s.Force() {
		t.Error("force should drop with the cleared addition")
	}
}

func TestSet_ClearThroughRecomputesForce(t *testing.T) {
	s := NewSet()

	s.Record(Event{Path: "/r/early.txt", Kind: Modified}, t0)
	s.Record(Event{Path: "/r/new.txt", Kind: Added}, t0.Add(time.Second))

	s.ClearThrough(t0)

	if !s.Force() {
		t.Error("surviving addition should keep force set")
	}
}

func TestSet_Snapshot(t *testing.T) {
	s := NewSet()
	s.Record(Event{Path: "/r/b.txt", Kind: Modified}, t0)
	s.Record(Event{Path: "/r/a.txt", Kind: Added}, t0)

	snap := s.Snapshot()
	if len(snap) != 2 || snap[0].Path != "/r/a.txt" || snap[1].Path != "/r/b.txt" {
		t.Errorf("Snapshot() = %+v, want sorted by path", snap)
	}
	if s.Empty() {
		t.Error("Empty() should be false")
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		Added:    "added",
		Modified: "modified",
		Renamed:  "renamed",
		Deleted:  "deleted",
		Kind(0):  "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
