package coverage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Lock when another process holds the coverage file.
var ErrLocked = errors.New("coverage file is locked by another process")

// FileLock is an advisory lock on a coverage file.
type FileLock struct {
	fl *flock.Flock
}

// Lock acquires the advisory lock "<path>.lock" without blocking.
func Lock(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create coverage directory: %w", err)
	}
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock coverage file: %w", err)
	}
	if !ok {
		_ = fl.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return &FileLock{fl: fl}, nil
}

// Unlock releases the lock. It is safe to call on a nil lock.
func (l *FileLock) Unlock() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Close()
}
