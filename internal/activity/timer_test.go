package activity

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

func TestIdleTimerFiresOnce(t *testing.T) {
	var mu sync.Mutex
	clock := NewFakeClock(t0)
	timer := NewIdleTimer(clock, &mu)

	fired := 0
	mu.Lock()
	timer.Arm(2*time.Second, func() { fired++ })
	mu.Unlock()

	clock.Advance(1999 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("fired early: %d", fired)
	}

	clock.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("expected 1 fire, got %d", fired)
	}

	clock.Advance(10 * time.Second)
	if fired != 1 {
		t.Errorf("timer repeated: %d fires", fired)
	}
	if timer.Pending() {
		t.Error("timer should not be pending after firing")
	}
}

func TestIdleTimerRearmReplaces(t *testing.T) {
	var mu sync.Mutex
	clock := NewFakeClock(t0)
	timer := NewIdleTimer(clock, &mu)

	var fired []string
	mu.Lock()
	timer.Arm(time.Second, func() { fired = append(fired, "first") })
	mu.Unlock()

	clock.Advance(500 * time.Millisecond)

	mu.Lock()
	timer.Arm(time.Second, func() { fired = append(fired, "second") })
	mu.Unlock()

	if clock.Pending() != 1 {
		t.Errorf("expected exactly 1 outstanding deadline, got %d", clock.Pending())
	}

	clock.Advance(2 * time.Second)
	if len(fired) != 1 || fired[0] != "second" {
		t.Errorf("expected only the second deadline to fire, got %v", fired)
	}
}

func TestIdleTimerCancel(t *testing.T) {
	var mu sync.Mutex
	clock := NewFakeClock(t0)
	timer := NewIdleTimer(clock, &mu)

	// Never armed
	timer.Cancel()

	fired := false
	timer.Arm(time.Second, func() { fired = true })
	timer.Cancel()
	timer.Cancel()

	clock.Advance(5 * time.Second)
	if fired {
		t.Error("cancelled timer fired")
	}
	if clock.Pending() != 0 {
		t.Errorf("expected no outstanding deadlines, got %d", clock.Pending())
	}
}

// A deadline that is already due and waiting for the lock when new
// activity re-arms the timer must not fire.
func TestIdleTimerStaleFireDropped(t *testing.T) {
	var mu sync.Mutex
	clock := NewFakeClock(t0)
	timer := NewIdleTimer(clock, &mu)

	fired := 0
	mu.Lock()
	timer.Arm(time.Second, func() { fired++ })

	done := make(chan struct{})
	go func() {
		clock.Advance(time.Second)
		close(done)
	}()

	// Wait until the fire has left the clock's queue and blocks on mu
	for clock.Pending() != 0 {
		runtime.Gosched()
	}

	timer.Arm(time.Second, func() { fired += 10 })
	mu.Unlock()
	<-done

	if fired != 0 {
		t.Errorf("stale deadline fired: %d", fired)
	}
	if !timer.Pending() {
		t.Error("replacement deadline should still be pending")
	}

	clock.Advance(time.Second)
	if fired != 10 {
		t.Errorf("expected replacement deadline to fire, got %d", fired)
	}
}
