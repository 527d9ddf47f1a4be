package lock_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/0xRadioAc7iv/go-slotkv/internal/lock"
)

func TestLockFile(t *testing.T) {
	t.Run("second acquire fails while lock is held", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".store.lock")

		f, err := lock.Acquire(path)
		if err != nil {
			t.Fatalf("could not take initial lock: %v", err)
		}
		defer lock.Release(f)

		f2, err := lock.Acquire(path)
		if err == nil {
			lock.Release(f2)
			t.Fatal("second lock was not supposed to succeed")
		}
		if !errors.Is(err, lock.ErrLocked) {
			t.Errorf("expected ErrLocked, got %v", err)
		}
	})

	t.Run("acquire succeeds after release", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".store.lock")

		f, err := lock.Acquire(path)
		if err != nil {
			t.Fatalf("lock was supposed to succeed: %v", err)
		}
		if err := lock.Release(f); err != nil {
			t.Fatalf("release failed: %v", err)
		}

		f2, err := lock.Acquire(path)
		if err != nil {
			t.Fatalf("lock was supposed to succeed after release: %v", err)
		}
		lock.Release(f2)
	})
}
