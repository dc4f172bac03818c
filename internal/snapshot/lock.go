package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockFileName = ".toxstats.lock"

var ErrLocked = errors.New("snapshot root is locked by another ingester")

// RootLock holds an advisory lock on a snapshot root so only one ingester
// works on it at a time.
type RootLock struct {
	lock *flock.Flock
}

func NewRootLock(root string) *RootLock {
	return &RootLock{lock: flock.New(filepath.Join(root, lockFileName))}
}

// Acquire polls until the lock is held or ctx is done.
func (l *RootLock) Acquire(ctx context.Context) error {
	ok, err := l.lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %s", ErrLocked, l.lock.Path())
		}
		return fmt.Errorf("acquire lock %s: %w", l.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, l.lock.Path())
	}
	return nil
}

func (l *RootLock) Release() error {
	return l.lock.Close()
}
