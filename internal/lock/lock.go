// Package lock keeps two agsync processes from mirroring the same directory.
package lock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file inside the metadata directory.
const FileName = "agsync.lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("another agsync process is already watching this directory")

// Lock is a held directory lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock in dir without waiting.
func Acquire(dir string) (*Lock, error) {
	fl := flock.New(filepath.Join(dir, FileName))

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release drops the lock.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
