package lock

import (
	"errors"
	"testing"
)

func TestAcquire_Exclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	if _, err := Acquire(dir); !errors.Is(err, ErrLocked) {
		t.Errorf("second Acquire() = %v, want ErrLocked", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}

	again, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire() after release failed: %v", err)
	}
	again.Release()
}

func TestAcquire_MissingDir(t *testing.T) {
	if _, err := Acquire(t.TempDir() + "/missing/deeper"); err == nil {
		t.Error("Acquire() in missing directory should fail")
	}
}
