package gpio

import (
	"testing"
	"time"

	"github.com/sweeney/idle-sensor/internal/activity"
)

func TestActiveEdge(t *testing.T) {
	tests := []struct {
		rising    bool
		activeLow bool
		want      bool
	}{
		{rising: true, activeLow: false, want: true},
		{rising: false, activeLow: false, want: false},
		{rising: true, activeLow: true, want: false},
		{rising: false, activeLow: true, want: true},
	}

	for _, tt := range tests {
		if got := activeEdge(tt.rising, tt.activeLow); got != tt.want {
			t.Errorf("activeEdge(%v, %v) = %v, want %v", tt.rising, tt.activeLow, got, tt.want)
		}
	}
}

func TestEventFor(t *testing.T) {
	opts := DefaultOptions()
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	ev, ok := eventFor(opts, true, at)
	if !ok {
		t.Fatal("expected an event on the rising edge")
	}
	if ev.Name != "mousedown" {
		t.Errorf("expected mousedown, got %s", ev.Name)
	}
	if ev.Kind != activity.KindOther {
		t.Errorf("expected KindOther, got %v", ev.Kind)
	}
	if !ev.At.Equal(at) {
		t.Errorf("expected timestamp %v, got %v", at, ev.At)
	}

	if _, ok := eventFor(opts, false, at); ok {
		t.Error("expected no event on the falling edge")
	}
}

func TestEventForActiveLowPIR(t *testing.T) {
	opts := Options{Chip: "gpiochip0", Pin: 4, Event: "keydown", ActiveLow: true}
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if _, ok := eventFor(opts, true, at); ok {
		t.Error("rising edge is the release for an active-low line")
	}
	ev, ok := eventFor(opts, false, at)
	if !ok || ev.Name != "keydown" {
		t.Errorf("expected keydown on the falling edge, got %+v, %v", ev, ok)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Chip != "gpiochip0" {
		t.Errorf("unexpected chip %q", opts.Chip)
	}
	if opts.Debounce <= 0 {
		t.Error("expected a positive default debounce")
	}
}
