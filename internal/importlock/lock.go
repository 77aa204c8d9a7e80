// Package importlock serializes import runs. Commit-mode imports are
// single-writer by contract, so the CLI takes a file lock in the data
// directory before touching the store and fails fast when another
// import holds it.
package importlock

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock is a held import lock.
type Lock struct {
	fl   *flock.Flock
	path string
}

// Acquire takes the import lock inside dir without blocking. It returns
// an error when another import run already holds it.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, "import.lock")
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire import lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("another import is running (lock held at %s)", path)
	}
	return &Lock{fl: fl, path: path}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release import lock %s: %w", l.path, err)
	}
	return nil
}
