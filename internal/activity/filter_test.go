package activity

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestAcceptMovement(t *testing.T) {
	fs := FilterState{At: t0}

	ev := NewMoveEvent("mousemove", 250, 20, t0.Add(200*time.Millisecond))
	if !Accept(ev, &fs, 200*time.Millisecond) {
		t.Fatal("expected movement to be accepted")
	}
	if fs.Pos != (Point{X: 250, Y: 20}) {
		t.Errorf("expected stored position (250,20), got %+v", fs.Pos)
	}
	if !fs.At.Equal(ev.At) {
		t.Errorf("expected stored time %v, got %v", ev.At, fs.At)
	}
}

func TestAcceptRejects(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{
			name: "unresolved coordinates",
			ev:   Event{Name: "mousemove", Kind: KindMovement, At: t0.Add(time.Second)},
		},
		{
			name: "same position",
			ev:   NewMoveEvent("mousemove", 10, 10, t0.Add(time.Second)),
		},
		{
			name: "within throttle",
			ev:   NewMoveEvent("mousemove", 11, 10, t0.Add(199*time.Millisecond)),
		},
		{
			name: "legacy pointer alias within throttle",
			ev:   NewMoveEvent("MSPointerMove", 11, 10, t0.Add(100*time.Millisecond)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := FilterState{Pos: Point{X: 10, Y: 10}, At: t0}
			before := fs

			if Accept(tt.ev, &fs, 200*time.Millisecond) {
				t.Error("expected event to be rejected")
			}
			if fs != before {
				t.Errorf("filter state mutated on rejection: got %+v, want %+v", fs, before)
			}
		})
	}
}

func TestAcceptThrottleBoundary(t *testing.T) {
	fs := FilterState{At: t0}

	// Exactly the throttle interval is allowed
	ev := NewMoveEvent("mousemove", 1, 1, t0.Add(200*time.Millisecond))
	if !Accept(ev, &fs, 200*time.Millisecond) {
		t.Error("expected movement at exactly the throttle interval to be accepted")
	}
}

func TestAcceptZeroThrottle(t *testing.T) {
	fs := FilterState{At: t0}

	if !Accept(NewMoveEvent("mousemove", 1, 1, t0), &fs, 0) {
		t.Error("expected movement to be accepted with zero throttle")
	}
	if !Accept(NewMoveEvent("mousemove", 2, 1, t0), &fs, 0) {
		t.Error("expected second movement at same instant to be accepted with zero throttle")
	}
}

func TestAcceptNonMovement(t *testing.T) {
	for _, name := range []string{"keydown", "wheel", "mousedown", "touchstart", "touchmove", "DOMMouseScroll"} {
		t.Run(name, func(t *testing.T) {
			fs := FilterState{Pos: Point{X: 5, Y: 5}, At: t0}

			// Arrives immediately: throttle does not apply
			ev := NewMoveEvent(name, 99, 99, t0.Add(time.Millisecond))
			if !Accept(ev, &fs, 200*time.Millisecond) {
				t.Fatal("expected non-movement event to be accepted")
			}
			if fs.Pos != (Point{X: 5, Y: 5}) {
				t.Errorf("position should be untouched, got %+v", fs.Pos)
			}
			if !fs.At.Equal(ev.At) {
				t.Errorf("expected timestamp updated to %v, got %v", ev.At, fs.At)
			}
		})
	}
}

func TestAcceptNonMovementResetsThrottleWindow(t *testing.T) {
	fs := FilterState{At: t0}

	Accept(NewEvent("keydown", t0.Add(time.Second)), &fs, 200*time.Millisecond)

	ev := NewMoveEvent("mousemove", 3, 4, t0.Add(time.Second+100*time.Millisecond))
	if Accept(ev, &fs, 200*time.Millisecond) {
		t.Error("movement within throttle of an accepted key press should be rejected")
	}
}

func TestAcceptOlderNonMovementKeepsWindow(t *testing.T) {
	fs := FilterState{At: t0.Add(time.Second)}

	// Stamped before the last accepted event by another source
	if !Accept(NewEvent("mousedown", t0.Add(500*time.Millisecond)), &fs, 200*time.Millisecond) {
		t.Fatal("expected non-movement event to be accepted")
	}
	if !fs.At.Equal(t0.Add(time.Second)) {
		t.Errorf("throttle window moved backwards to %v", fs.At)
	}

	ev := NewMoveEvent("mousemove", 3, 4, t0.Add(time.Second+100*time.Millisecond))
	if Accept(ev, &fs, 200*time.Millisecond) {
		t.Error("movement within throttle of the newest accepted event should be rejected")
	}
}

func TestAcceptResolvesUnknownKind(t *testing.T) {
	fs := FilterState{At: t0}

	// Kind left unset: mousemove without coordinates must still be rejected
	if Accept(Event{Name: "mousemove", At: t0.Add(time.Second)}, &fs, 0) {
		t.Error("expected unset-kind mousemove without coordinates to be rejected")
	}
	if !Accept(Event{Name: "keydown", At: t0.Add(time.Second)}, &fs, 0) {
		t.Error("expected unset-kind keydown to be accepted")
	}
}

func TestKindFor(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"mousemove", KindMovement},
		{"pointermove", KindMovement},
		{"MSPointerMove", KindMovement},
		{"touchmove", KindOther},
		{"keydown", KindOther},
		{"", KindOther},
	}
	for _, tt := range tests {
		if got := KindFor(tt.name); got != tt.want {
			t.Errorf("KindFor(%q): got %v, want %v", tt.name, got, tt.want)
		}
	}
}
