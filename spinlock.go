// Package spinlock provides a test-and-test-and-set spinlock for very short
// critical sections.
//
// The lock is unfair: waiters are not queued and any of them may win the
// next acquire, so a goroutine can starve. Lock never sleeps or yields to the
// scheduler; callers that expect long waits should use LockContext.
//
// A successful Lock or TryLock synchronizes with the Unlock that last
// released the lock: every write made before that Unlock is visible after the
// acquire. Go's atomics are sequentially consistent, which is at least the
// acquire/release ordering the lock needs.
package spinlock

import (
	"sync"
	"sync/atomic"

	"github.com/yudhasubki/spinlock/pkg/proc"
)

var _ sync.Locker = (*SpinLock)(nil)

// SpinLock is a mutual exclusion lock that busy-waits. The zero value is an
// unlocked lock. A SpinLock must not be copied after first use.
//
// A locked SpinLock is not associated with a particular goroutine; one
// goroutine may lock it and another unlock it.
type SpinLock struct {
	locked atomic.Bool
}

// New returns an unlocked SpinLock.
func New() *SpinLock {
	return &SpinLock{}
}

// Lock locks l. If the lock is already in use, the calling goroutine spins
// until it is available.
func (l *SpinLock) Lock() {
	for {
		// optimistically assume the lock is free on the first try
		if !l.locked.Swap(true) {
			return
		}

		// wait for the release with plain loads so the cache line stays shared
		for l.locked.Load() {
			proc.Yield()
		}
	}
}

// TryLock tries to lock l and reports whether it succeeded. It checks the
// flag before attempting the exchange, so polling a held lock in a loop does
// not bounce the cache line between cores.
//
// A false result only means the acquire could not be confirmed; the lock
// may have been released by the time TryLock returns.
func (l *SpinLock) TryLock() bool {
	return !l.locked.Load() && !l.locked.Swap(true)
}

// Unlock unlocks l. The caller must hold the lock. Unlocking a lock that is
// not held is not detected and may let two goroutines hold it at once; use
// Checked to catch that in tests.
func (l *SpinLock) Unlock() {
	l.locked.Store(false)
}

// IsLocked reports whether l is held at the moment of the call. The answer
// may be stale by the time it is used.
func (l *SpinLock) IsLocked() bool {
	return l.locked.Load()
}
