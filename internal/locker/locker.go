// Package locker serializes conflict-check-plus-write sequences per
// room. Create and approve take the room's lock, re-check availability,
// and write while still holding it; without that two concurrent requests
// can both pass the check and both commit.
package locker

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout is returned when a lock cannot be acquired before the
// caller's context expires. It is an infrastructure failure and safe to
// retry.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Locker grants exclusive access to a room's booking critical section.
type Locker interface {
	// Acquire blocks until the room's lock is held or ctx is done.
	// The returned release function must be called exactly once.
	Acquire(ctx context.Context, roomID int64) (release func(), err error)
}

// Local is an in-process Locker keyed by room id. Sufficient for a
// single-instance deployment; use Redis when running replicas.
type Local struct {
	mu    sync.Mutex
	locks map[int64]*roomLock
}

type roomLock struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{locks: make(map[int64]*roomLock)}
}

// Acquire implements Locker.
func (l *Local) Acquire(ctx context.Context, roomID int64) (func(), error) {
	l.mu.Lock()
	rl, ok := l.locks[roomID]
	if !ok {
		rl = &roomLock{ch: make(chan struct{}, 1)}
		l.locks[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.ch <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-rl.ch
				l.unref(roomID, rl)
			})
		}
		return release, nil
	case <-ctx.Done():
		l.mu.Lock()
		rl.refs--
		l.mu.Unlock()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, ctx.Err()
	}
}

func (l *Local) unref(roomID int64, rl *roomLock) {
	l.mu.Lock()
	rl.refs--
	if rl.refs == 0 {
		delete(l.locks, roomID)
	}
	l.mu.Unlock()
}
