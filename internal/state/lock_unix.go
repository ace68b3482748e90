//go:build unix

package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

type flock struct {
	path string
	file *os.File
}

// AcquireLock takes a non-blocking exclusive flock on the project lock file.
// It fails with ErrLocked when another process holds it.
func AcquireLock(root string) (Lock, error) {
	path := filepath.Join(root, LockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, &IOError{Op: "lock", Path: path, Err: err}
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
		}
		return nil, &IOError{Op: "lock", Path: path, Err: err}
	}

	// The holder unlinks the file on release; a lock taken on an unlinked
	// inode guards nothing.
	held, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "lock", Path: path, Err: err}
	}
	if current, err := os.Stat(path); err != nil || !os.SameFile(held, current) {
		f.Close()
		return nil, fmt.Errorf("%w (%s was replaced)", ErrLocked, path)
	}

	return &flock{path: path, file: f}, nil
}

func (l *flock) Release() error {
	if l.file == nil {
		return nil
	}
	// Unlink while still holding the lock.
	rmErr := os.Remove(l.path)
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	if err == nil && rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = rmErr
	}
	return err
}
