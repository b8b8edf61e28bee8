package ledger

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked indicates another run holds the ledger.
var ErrLocked = errors.New("ledger is locked by another run")

// Lock is an exclusive advisory lock held beside the ledger file for the
// duration of a run.
type Lock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes the lock for the ledger at ledgerPath without blocking.
func AcquireLock(ledgerPath string) (*Lock, error) {
	lockPath := ledgerPath + ".lock"
	l := &Lock{path: lockPath, lock: flock.New(lockPath)}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, lockPath)
	}
	return l, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release unlocks the ledger.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
