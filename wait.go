package spinlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrNotLocked = errors.New("spinlock: unlock of unlocked lock")
	ErrNotOwner  = errors.New("spinlock: unlock by non-owner")
	ErrContended = errors.New("spinlock: lock still held")
)

const (
	backoffInitialInterval = time.Microsecond
	backoffMaxInterval     = time.Millisecond
)

// TryLocker is implemented by locks that support a non-blocking acquire.
type TryLocker interface {
	TryLock() bool
}

// NewBackOff returns the wait policy used by LockContext when none is given:
// it starts polling every microsecond and doubles the interval up to one
// millisecond. It never gives up on its own.
func NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffInitialInterval
	b.MaxInterval = backoffMaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// LockContext acquires l by polling TryLock, sleeping between attempts as
// dictated by b (NewBackOff when nil). It returns nil once the lock is held,
// the context's error when ctx is done first, or ErrContended when b stops.
func LockContext(ctx context.Context, l TryLocker, b backoff.BackOff) error {
	if l.TryLock() {
		return nil
	}
	if b == nil {
		b = NewBackOff()
	}

	return backoff.Retry(func() error {
		if l.TryLock() {
			return nil
		}
		return ErrContended
	}, backoff.WithContext(b, ctx))
}

// Do runs fn while holding l and releases l on every exit path, including a
// panic in fn.
func Do(l sync.Locker, fn func() error) error {
	l.Lock()
	defer l.Unlock()

	return fn()
}
