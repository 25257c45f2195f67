package activity

import (
	"sync"
	"time"
)

// IdleTimer is a single rearmable one-shot deadline.
//
// The timer shares a lock with its owner. Arm, Cancel and Pending must be
// called with that lock held; onFire runs with it held. A deadline that
// was cancelled or replaced while its fire was already waiting on the lock
// is dropped, so the newest arm always wins.
type IdleTimer struct {
	clock Clock
	lock  sync.Locker

	seq     uint64
	stopper Stopper
}

// NewIdleTimer creates an unarmed timer on clock, serialized by lock.
func NewIdleTimer(clock Clock, lock sync.Locker) *IdleTimer {
	if clock == nil {
		clock = wallClock{}
	}
	return &IdleTimer{clock: clock, lock: lock}
}

// Arm schedules onFire after d, cancelling any pending deadline first.
func (t *IdleTimer) Arm(d time.Duration, onFire func()) {
	t.Cancel()
	seq := t.seq
	t.stopper = t.clock.AfterFunc(d, func() {
		t.lock.Lock()
		defer t.lock.Unlock()
		if seq != t.seq {
			return
		}
		t.stopper = nil
		onFire()
	})
}

// Cancel stops the pending deadline. No-op if none is pending.
func (t *IdleTimer) Cancel() {
	if t.stopper != nil {
		t.stopper.Stop()
		t.stopper = nil
	}
	t.seq++
}

// Pending reports whether a deadline is outstanding.
func (t *IdleTimer) Pending() bool {
	return t.stopper != nil
}
