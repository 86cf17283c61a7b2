package chain

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockFileName = ".chain.lock"

// fileLock is an exclusive, cross-process lock on the chain directory,
// guaranteeing the single-writer-per-chain-directory append protocol
// (spec §4.3, §5). Readers do not need to hold it.
type fileLock struct {
	fl *flock.Flock
}

func newFileLock(dir string) *fileLock {
	return &fileLock{fl: flock.New(filepath.Join(dir, lockFileName))}
}

// lockExclusive blocks (with a bounded retry loop) until the lock is
// acquired or timeout elapses.
func (l *fileLock) lockExclusive(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ok, err := l.fl.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	if !ok {
		return ErrLockTimeout
	}
	return nil
}

func (l *fileLock) unlock() error {
	return l.fl.Unlock()
}
