package svcstate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sys/unix"
)

// TransitionLock guards one service's state transitions against concurrent
// callers, in this process or another. It's backed by an advisory flock
// on a regular file rather than an in-memory mutex: the whole point is
// that a crashed rcinit invocation releases the lock the moment its fd
// table is torn down, with no cleanup step required.
type TransitionLock struct {
	path string
	file *os.File
}

// NewTransitionLock opens (creating if necessary) the lockfile for name
// under root, without acquiring it.
func (s *Store) NewTransitionLock(name string) (*TransitionLock, error) {
	path := s.root.LockFile(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("svcstate: creating lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("svcstate: opening lockfile for %s: %w", name, err)
	}
	return &TransitionLock{path: path, file: f}, nil
}

// TryLock attempts a non-blocking exclusive flock, returning false rather
// than an error if another holder currently has it.
func (l *TransitionLock) TryLock() (bool, error) {
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if err == unix.EWOULDBLOCK {
		return false, nil
	}
	return false, fmt.Errorf("svcstate: flock %s: %w", l.path, err)
}

// Unlock releases the flock and closes the underlying file descriptor.
// Safe to call on a lock that was never successfully acquired.
func (l *TransitionLock) Unlock() error {
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	return l.file.Close()
}

// Wait polls TryLock with bounded exponential backoff until it succeeds,
// ctx is cancelled, or timeout elapses, returning true only on success.
// This is the "wait_service" primitive: a caller blocked on another
// service's in-flight transition uses it instead of busy-spinning.
func (l *TransitionLock) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	bctx := backoff.WithContext(b, ctx)

	var acquired bool
	op := func() error {
		ok, err := l.TryLock()
		if err != nil {
			return backoff.Permanent(err)
		}
		if ok {
			acquired = true
			return nil
		}
		return errLockBusy
	}

	if err := backoff.Retry(op, bctx); err != nil {
		if err == errLockBusy || ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}
	return acquired, nil
}

var errLockBusy = fmt.Errorf("svcstate: %w", ErrTransitionBusy)
