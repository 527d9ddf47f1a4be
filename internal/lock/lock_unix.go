//go:build unix

package lock

import (
	"fmt"
	"os"
	"syscall"
)

// Acquire takes an exclusive, non-blocking advisory lock on the file at
// path, creating it if needed.
//
// On Unix systems, this uses flock(2). The lock belongs to the open file
// description, so a second Acquire on the same path fails even from the
// same process.
//
// The returned file handle must remain open for the duration of the lock.
func Acquire(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to open lock file: %w", err)
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	return f, nil
}

// Release drops a lock taken by Acquire and closes its file.
func Release(f *os.File) error {
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
